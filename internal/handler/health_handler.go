package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ahmednasr/issue-search/internal/database"
	"github.com/ahmednasr/issue-search/internal/service"
)

type HealthHandler struct {
	search service.SearchService
	db     *mongo.Client
}

func NewHealthHandler(search service.SearchService, db *mongo.Client) *HealthHandler {
	return &HealthHandler{search: search, db: db}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"records": h.search.Size(),
		"db":      h.checkDB(c),
	})
}

func (h *HealthHandler) checkDB(c *fiber.Ctx) string {
	if h.db == nil {
		return "not_configured"
	}
	if err := database.Ping(c.UserContext(), h.db); err != nil {
		return "error"
	}
	return "connected"
}
