package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/issue-search/internal/models"
	"github.com/ahmednasr/issue-search/internal/service"
)

// maxK bounds the number of results a single request may ask for.
const maxK = 100

// SearchHandler wires HTTP → SearchService.
type SearchHandler struct {
	svc      service.SearchService
	defaultK int
}

// NewSearchHandler returns a handler instance.
func NewSearchHandler(svc service.SearchService, defaultK int) *SearchHandler {
	return &SearchHandler{svc: svc, defaultK: defaultK}
}

// Register mounts GET /search on the given router group.
func (h *SearchHandler) Register(r fiber.Router) {
	r.Get("/search", h.search)
}

// search handles GET /search?q=some+text&k=5
func (h *SearchHandler) search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q (query) parameter is required")
	}

	k := h.defaultK
	if kParam := c.Query("k"); kParam != "" {
		n, err := strconv.Atoi(kParam)
		if err != nil || n <= 0 || n > maxK {
			return fiber.NewError(fiber.StatusBadRequest, "k must be an integer between 1 and 100")
		}
		k = n
	}

	req := models.SearchRequest{
		Query: q,
		TopK:  k,
	}

	results, err := h.svc.Search(c.UserContext(), req.Query, req.TopK)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(results)
}
