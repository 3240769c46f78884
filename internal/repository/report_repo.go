package repository

import (
	"context"
	"errors"

	"go-parts-ledger/internal/model"

	"gorm.io/gorm"
)

type ReportRepository interface {
	FindByPeriod(ctx context.Context, year, month int) (*model.MonthlyReport, error)
	// FindAll returns reports newest period first.
	FindAll(ctx context.Context) ([]model.MonthlyReport, error)
	// SaveDraft inserts or replaces the draft for the report's period.
	SaveDraft(ctx context.Context, report *model.MonthlyReport) error
	// Finalize stores the report as the frozen snapshot of its period.
	Finalize(ctx context.Context, report *model.MonthlyReport) error
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) FindByPeriod(ctx context.Context, year, month int) (*model.MonthlyReport, error) {
	var report model.MonthlyReport
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		First(&report).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *reportRepo) FindAll(ctx context.Context) ([]model.MonthlyReport, error) {
	var reports []model.MonthlyReport
	err := r.db.WithContext(ctx).Order("year DESC, month DESC").Find(&reports).Error
	return reports, err
}

func (r *reportRepo) SaveDraft(ctx context.Context, report *model.MonthlyReport) error {
	report.IsFinalized = false
	report.FinalizedAt = nil
	return r.upsert(ctx, report)
}

func (r *reportRepo) Finalize(ctx context.Context, report *model.MonthlyReport) error {
	report.IsFinalized = true
	return r.upsert(ctx, report)
}

// upsert replaces the row of the report's period unless that row is already
// finalized. The existing row keeps its ID.
func (r *reportRepo) upsert(ctx context.Context, report *model.MonthlyReport) error {
	db := r.db.WithContext(ctx)

	var existing model.MonthlyReport
	err := forUpdate(db).
		Where("year = ? AND month = ?", report.Year, report.Month).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return translate(db.Create(report).Error)
	case err != nil:
		return err
	}

	if existing.IsFinalized {
		return ErrReportFinalized
	}

	report.ID = existing.ID
	report.CreatedAt = existing.CreatedAt
	return db.Model(&existing).
		Select("total_sales", "total_profit", "average_profit_margin",
			"is_finalized", "finalized_at", "generated_at", "report_data", "updated_at").
		Updates(report).Error
}
