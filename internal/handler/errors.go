package handler

import (
	"errors"

	"go-parts-ledger/internal/export"
	"go-parts-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{service.ErrValidation, fiber.StatusBadRequest, "validation_failed"},
	{service.ErrInvalidQuantity, fiber.StatusBadRequest, "invalid_quantity"},
	{service.ErrInvalidPrice, fiber.StatusBadRequest, "invalid_price"},
	{service.ErrInvalidPeriod, fiber.StatusBadRequest, "invalid_period"},
	{export.ErrUnsupportedFormat, fiber.StatusBadRequest, "unsupported_format"},

	{service.ErrProductNotFound, fiber.StatusNotFound, "product_not_found"},
	{service.ErrCategoryNotFound, fiber.StatusNotFound, "category_not_found"},
	{service.ErrReportNotFound, fiber.StatusNotFound, "report_not_found"},
	{service.ErrTransactionNotFound, fiber.StatusNotFound, "transaction_not_found"},

	{service.ErrDuplicateSKU, fiber.StatusConflict, "duplicate_sku"},
	{service.ErrDuplicateCategory, fiber.StatusConflict, "duplicate_category"},
	{service.ErrAlreadyFinalized, fiber.StatusConflict, "already_finalized"},
	{service.ErrNotCurrentPeriod, fiber.StatusConflict, "not_current_period"},
	{service.ErrPeriodClosed, fiber.StatusConflict, "period_closed"},
	{service.ErrConcurrentStockConflict, fiber.StatusConflict, "concurrent_stock_conflict"},
	{service.ErrPeriodLocked, fiber.StatusConflict, "period_locked"},

	{service.ErrInsufficientStock, fiber.StatusUnprocessableEntity, "insufficient_stock"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return fiber.StatusInternalServerError, "internal_error"
}

// errorJSON writes the error body for err. Infrastructure failures keep their
// detail out of the response.
func errorJSON(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	body := fiber.Map{"error": code, "message": err.Error()}
	if status == fiber.StatusInternalServerError {
		body["message"] = "Internal Server Error"
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		fields := make([]fiber.Map, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, fiber.Map{"field": f.FailedField, "tag": f.Tag, "param": f.Value})
		}
		body["fields"] = fields
	}

	var serr *service.InsufficientStockError
	if errors.As(err, &serr) {
		body["requested"] = serr.Requested
		body["available"] = serr.Available
	}

	if service.IsRetryable(err) {
		body["retryable"] = true
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}
