package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-parts-ledger/internal/cache"
	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReportCheck is the result of reconciling a stored report against the
// batch and sale history.
type ReportCheck struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	Balanced bool     `json:"balanced"`
	Issues   []string `json:"issues"`
}

type ReportService interface {
	// RefreshDraft rebuilds the open period's draft report from history.
	RefreshDraft(ctx context.Context, year, month int) (*model.MonthlyReport, error)
	GetReport(ctx context.Context, year, month int) (*model.MonthlyReport, error)
	ListReports(ctx context.Context) ([]model.MonthlyReport, error)
	VerifyReport(ctx context.Context, year, month int) (*ReportCheck, error)
}

type reportService struct {
	store repository.Store
	cache cache.ReportCache
	hub   EventPublisher
	log   *logrus.Logger
}

func NewReportService(store repository.Store, reportCache cache.ReportCache, hub EventPublisher, log *logrus.Logger) ReportService {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	return &reportService{store: store, cache: reportCache, hub: hub, log: log}
}

// snapshotReport builds the report row for period from what tx can see.
func snapshotReport(ctx context.Context, tx repository.Repositories, period model.Period, at time.Time) (*model.MonthlyReport, error) {
	products, err := tx.Products().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	batches, err := tx.Batches().ListPurchasedBefore(ctx, period.End())
	if err != nil {
		return nil, err
	}
	sales, err := tx.Sales().ListInRange(ctx, time.Time{}, period.End())
	if err != nil {
		return nil, err
	}

	var previous *model.ReportData
	prev := period.Prev()
	prevReport, err := tx.Reports().FindByPeriod(ctx, prev.Year, int(prev.Month))
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	case prevReport.IsFinalized:
		if previous, err = prevReport.Data(); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", prev, err)
		}
	}

	data := BuildReport(ReportInput{
		Period:   period,
		Products: products,
		Batches:  batches,
		Sales:    sales,
		Previous: previous,
	})
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &model.MonthlyReport{
		Year:                period.Year,
		Month:               int(period.Month),
		TotalSales:          data.Totals.Revenue,
		TotalProfit:         data.Totals.Profit,
		AverageProfitMargin: data.Totals.ProfitMargin,
		GeneratedAt:         at,
		ReportData:          string(payload),
	}, nil
}

func (s *reportService) RefreshDraft(ctx context.Context, year, month int) (*model.MonthlyReport, error) {
	period, err := model.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}

	var report *model.MonthlyReport
	err = s.store.Transaction(ctx, func(tx repository.Repositories) error {
		existing, err := tx.Reports().FindByPeriod(ctx, year, month)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil && existing.IsFinalized {
			return ErrAlreadyFinalized
		}

		state, err := tx.Ledger().Lock(ctx, false)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLedgerNotInitialized
		} else if err != nil {
			return err
		}
		open := state.OpenPeriod()
		if period.Before(open) {
			return fmt.Errorf("%w: %s", ErrPeriodClosed, period)
		}
		if period != open {
			return fmt.Errorf("%w: %s, open period is %s", ErrNotCurrentPeriod, period, open)
		}

		report, err = snapshotReport(ctx, tx, period, utcNow())
		if err != nil {
			return err
		}
		if err := tx.Reports().SaveDraft(ctx, report); err != nil {
			if errors.Is(err, repository.ErrReportFinalized) {
				return ErrAlreadyFinalized
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !IsClientError(err) {
			logger.LogError(s.log, "report", "RefreshDraft", "refresh draft report", period.String(), err)
		}
		return nil, classify(err)
	}

	s.log.WithFields(logrus.Fields{
		"period":      period.String(),
		"total_sales": report.TotalSales.String(),
	}).Info("draft report refreshed")
	publish(s.hub, EventReportRefreshed, map[string]interface{}{
		"year":         report.Year,
		"month":        report.Month,
		"total_sales":  report.TotalSales,
		"total_profit": report.TotalProfit,
	})
	return report, nil
}

func (s *reportService) GetReport(ctx context.Context, year, month int) (*model.MonthlyReport, error) {
	period, err := model.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, period); err != nil {
		s.log.WithError(err).WithField("period", period.String()).Warn("report cache read failed")
	} else if ok {
		return cached, nil
	}

	report, err := s.store.Reports().FindByPeriod(ctx, year, month)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	} else if err != nil {
		return nil, classify(err)
	}

	if report.IsFinalized {
		if err := s.cache.Set(ctx, report); err != nil {
			s.log.WithError(err).WithField("period", period.String()).Warn("report cache write failed")
		}
	}
	return report, nil
}

func (s *reportService) ListReports(ctx context.Context) ([]model.MonthlyReport, error) {
	reports, err := s.store.Reports().FindAll(ctx)
	return reports, classify(err)
}

// VerifyReport checks that every line balances and that its ending quantity
// matches the batches as they stood at month end.
func (s *reportService) VerifyReport(ctx context.Context, year, month int) (*ReportCheck, error) {
	report, err := s.GetReport(ctx, year, month)
	if err != nil {
		return nil, err
	}
	data, err := report.Data()
	if err != nil {
		return nil, classify(fmt.Errorf("decode report %s: %w", report.Period(), err))
	}

	end := report.Period().End()
	check := &ReportCheck{Year: year, Month: month, Issues: []string{}}

	err = s.store.Transaction(ctx, func(tx repository.Repositories) error {
		batches, err := tx.Batches().ListPurchasedBefore(ctx, end)
		if err != nil {
			return err
		}
		later, err := tx.Sales().ListInRange(ctx, end, time.Time{})
		if err != nil {
			return err
		}

		// Quantity held at month end is what is left now plus what was sold
		// from the same batches afterwards.
		soldLater := make(map[uuid.UUID]int)
		for _, sale := range later {
			soldLater[sale.BatchID] += sale.Quantity
		}
		heldAtEnd := make(map[uuid.UUID]int)
		for _, b := range batches {
			heldAtEnd[b.ProductID] += b.CurrentQuantity + soldLater[b.ID]
		}

		for _, line := range data.Products {
			if got := line.StartingQuantity + line.PurchasedQuantity - line.SoldQuantity; got != line.EndingQuantity {
				check.Issues = append(check.Issues, fmt.Sprintf(
					"%s: starting %d + purchased %d - sold %d = %d, report says %d",
					line.SKU, line.StartingQuantity, line.PurchasedQuantity, line.SoldQuantity, got, line.EndingQuantity))
			}
			if held := heldAtEnd[line.ProductID]; held != line.EndingQuantity {
				check.Issues = append(check.Issues, fmt.Sprintf(
					"%s: ending quantity %d, batches held %d at period end", line.SKU, line.EndingQuantity, held))
			}
			delete(heldAtEnd, line.ProductID)
		}
		for productID, held := range heldAtEnd {
			if held == 0 {
				continue
			}
			check.Issues = append(check.Issues, fmt.Sprintf("product %s: %d units held at period end but missing from report", productID, held))
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	check.Balanced = len(check.Issues) == 0
	return check, nil
}
