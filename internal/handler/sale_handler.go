package handler

import (
	"time"

	"go-parts-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.RecordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.service.RecordSale(c.UserContext(), &req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": result})
}

// GetSales lists sales between the optional from and to dates, both
// inclusive.
// Query params: from, to (YYYY-MM-DD)
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return badRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
		}
		from = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return badRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}

	sales, err := h.service.ListSales(c.UserContext(), from, to)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(sales)
}

func (h *SaleHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	sales, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(sales)
}
