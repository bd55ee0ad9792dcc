package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/issue-search/internal/models"
	"github.com/ahmednasr/issue-search/internal/service"
)

// AskHandler wires HTTP → AskService.
type AskHandler struct {
	svc      *service.AskService
	defaultK int
}

// NewAskHandler returns a handler; svc may be nil when no LLM is configured.
func NewAskHandler(svc *service.AskService, defaultK int) *AskHandler {
	return &AskHandler{svc: svc, defaultK: defaultK}
}

// Register mounts POST /ask on the supplied router group.
func (h *AskHandler) Register(r fiber.Router) {
	r.Post("/ask", h.ask)
}

// ask handles POST /ask  { "question": "...", "k": 5 }
func (h *AskHandler) ask(c *fiber.Ctx) error {
	var req models.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.Question == "" {
		return fiber.NewError(fiber.StatusBadRequest, "question is required")
	}
	if req.TopK < 0 || req.TopK > maxK {
		return fiber.NewError(fiber.StatusBadRequest, "k must be an integer between 1 and 100")
	}
	if req.TopK == 0 {
		req.TopK = h.defaultK
	}
	if h.svc == nil {
		return fiber.NewError(fiber.StatusNotImplemented, service.ErrLLMUnavailable.Error())
	}

	answer, err := h.svc.Ask(c.UserContext(), req.Question, req.TopK)
	if errors.Is(err, service.ErrLLMUnavailable) {
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	}
	if err != nil {
		log.Printf("[Ask] error generating answer: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(answer)
}
