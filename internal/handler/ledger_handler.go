package handler

import (
	"go-parts-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type LedgerHandler struct {
	service service.LedgerService
}

func NewLedgerHandler(s service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: s}
}

// GetLedger returns the open period and a stock overview
func (h *LedgerHandler) GetLedger(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(summary)
}

// Verify reconciles every product's stock counter with its batches
func (h *LedgerHandler) Verify(c *fiber.Ctx) error {
	check, err := h.service.VerifyStock(c.UserContext())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(check)
}
