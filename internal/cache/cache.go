package cache

import (
	"context"

	"go-parts-ledger/internal/model"
)

// ReportCache holds finalized monthly reports. Finalized reports never change,
// so entries carry no expiry.
type ReportCache interface {
	Get(ctx context.Context, period model.Period) (*model.MonthlyReport, bool, error)
	Set(ctx context.Context, report *model.MonthlyReport) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ model.Period) (*model.MonthlyReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ *model.MonthlyReport) error {
	return nil
}

func reportKey(period model.Period) string {
	return "ledger:report:" + period.String()
}
