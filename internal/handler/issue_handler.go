package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/issue-search/internal/service"
)

// IssueHandler exposes the indexed records of a single issue.
type IssueHandler struct {
	svc service.SearchService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(svc service.SearchService) *IssueHandler {
	return &IssueHandler{svc: svc}
}

// Register mounts GET /issues/:number on the supplied router group.
func (h *IssueHandler) Register(r fiber.Router) {
	r.Get("/issues/:number", h.getIssue)
}

// getIssue handles GET /issues/:number
func (h *IssueHandler) getIssue(c *fiber.Ctx) error {
	number, err := c.ParamsInt("number")
	if err != nil || number <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "issue number must be a positive integer")
	}

	records := h.svc.FindByNumber(number)
	if len(records) == 0 {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("issue #%d is not in the index", number))
	}
	return c.JSON(records)
}
