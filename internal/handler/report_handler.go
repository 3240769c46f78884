package handler

import (
	"bytes"
	"fmt"

	"go-parts-ledger/internal/export"
	"go-parts-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reports  service.ReportService
	rollover service.RolloverService
}

func NewReportHandler(reports service.ReportService, rollover service.RolloverService) *ReportHandler {
	return &ReportHandler{reports: reports, rollover: rollover}
}

func periodParams(c *fiber.Ctx) (int, int, error) {
	year, err := c.ParamsInt("year")
	if err != nil {
		return 0, 0, fmt.Errorf("%w: year", service.ErrInvalidPeriod)
	}
	month, err := c.ParamsInt("month")
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month", service.ErrInvalidPeriod)
	}
	return year, month, nil
}

func (h *ReportHandler) GetReports(c *fiber.Ctx) error {
	reports, err := h.reports.ListReports(c.UserContext())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(reports)
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	year, month, err := periodParams(c)
	if err != nil {
		return errorJSON(c, err)
	}

	report, err := h.reports.GetReport(c.UserContext(), year, month)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) RefreshReport(c *fiber.Ctx) error {
	year, month, err := periodParams(c)
	if err != nil {
		return errorJSON(c, err)
	}

	report, err := h.reports.RefreshDraft(c.UserContext(), year, month)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Draft report refreshed", "data": report})
}

func (h *ReportHandler) FinalizeReport(c *fiber.Ctx) error {
	year, month, err := periodParams(c)
	if err != nil {
		return errorJSON(c, err)
	}

	report, err := h.rollover.FinalizeMonth(c.UserContext(), year, month)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Month finalized", "data": report})
}

func (h *ReportHandler) VerifyReport(c *fiber.Ctx) error {
	year, month, err := periodParams(c)
	if err != nil {
		return errorJSON(c, err)
	}

	check, err := h.reports.VerifyReport(c.UserContext(), year, month)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(check)
}

// ExportReport downloads a stored report.
// Query params: format (xlsx, csv; default xlsx)
func (h *ReportHandler) ExportReport(c *fiber.Ctx) error {
	year, month, err := periodParams(c)
	if err != nil {
		return errorJSON(c, err)
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return errorJSON(c, err)
	}

	report, err := h.reports.GetReport(c.UserContext(), year, month)
	if err != nil {
		return errorJSON(c, err)
	}
	data, err := report.Data()
	if err != nil {
		return errorJSON(c, err)
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, data, format); err != nil {
		return errorJSON(c, err)
	}

	c.Attachment(format.FileName(report.Period()))
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}
