package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ahmednasr/issue-search/internal/service"
)

// RegisterRoutes mounts the API under /api/v1 and the health check at /health.
// askSvc and mongoClient may be nil.
func RegisterRoutes(app *fiber.App,
	searchSvc service.SearchService,
	askSvc *service.AskService,
	mongoClient *mongo.Client,
	defaultK int,
) {
	v1 := app.Group("/api/v1")
	NewSearchHandler(searchSvc, defaultK).Register(v1)
	NewIssueHandler(searchSvc).Register(v1)
	NewAskHandler(askSvc, defaultK).Register(v1)

	NewHealthHandler(searchSvc, mongoClient).Register(app)
}
