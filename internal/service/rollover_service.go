package service

import (
	"context"
	"errors"
	"fmt"

	"go-parts-ledger/internal/cache"
	"go-parts-ledger/internal/lock"
	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/pkg/logger"

	"github.com/sirupsen/logrus"
)

type RolloverService interface {
	// Initialize opens the ledger at start unless it already exists, and
	// returns the stored state.
	Initialize(ctx context.Context, start model.Period) (*model.LedgerState, error)
	CurrentPeriod(ctx context.Context) (model.Period, error)
	// FinalizeMonth freezes the open month's report and opens the next month.
	FinalizeMonth(ctx context.Context, year, month int) (*model.MonthlyReport, error)
}

type rolloverService struct {
	store  repository.Store
	locker lock.Locker
	cache  cache.ReportCache
	hub    EventPublisher
	log    *logrus.Logger
}

func NewRolloverService(store repository.Store, locker lock.Locker, reportCache cache.ReportCache, hub EventPublisher, log *logrus.Logger) RolloverService {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	return &rolloverService{store: store, locker: locker, cache: reportCache, hub: hub, log: log}
}

func periodLockKey(p model.Period) string {
	return "ledger:period:" + p.String()
}

func (s *rolloverService) Initialize(ctx context.Context, start model.Period) (*model.LedgerState, error) {
	state, err := s.store.Ledger().Init(ctx, start)
	if err != nil {
		logger.LogError(s.log, "rollover", "Initialize", "init ledger state", start.String(), err)
		return nil, classify(err)
	}
	s.log.WithField("open_period", state.OpenPeriod().String()).Info("ledger ready")
	return state, nil
}

func (s *rolloverService) CurrentPeriod(ctx context.Context) (model.Period, error) {
	state, err := s.store.Ledger().Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Period{}, ErrLedgerNotInitialized
	} else if err != nil {
		return model.Period{}, classify(err)
	}
	return state.OpenPeriod(), nil
}

func (s *rolloverService) FinalizeMonth(ctx context.Context, year, month int) (*model.MonthlyReport, error) {
	period, err := model.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, periodLockKey(period))
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrPeriodLocked, period)
	} else if err != nil {
		return nil, classify(err)
	}
	defer release()

	var (
		report *model.MonthlyReport
		next   model.Period
	)
	err = s.store.Transaction(ctx, func(tx repository.Repositories) error {
		// Exclusive: waits for in-flight postings and blocks new ones until
		// the month is closed.
		state, err := tx.Ledger().Lock(ctx, true)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLedgerNotInitialized
		} else if err != nil {
			return err
		}

		existing, err := tx.Reports().FindByPeriod(ctx, year, month)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil && existing.IsFinalized {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalized, period)
		}

		if open := state.OpenPeriod(); period != open {
			return fmt.Errorf("%w: %s, open period is %s", ErrNotCurrentPeriod, period, open)
		}

		now := utcNow()
		report, err = snapshotReport(ctx, tx, period, now)
		if err != nil {
			return err
		}
		report.FinalizedAt = &now
		if err := tx.Reports().Finalize(ctx, report); err != nil {
			if errors.Is(err, repository.ErrReportFinalized) {
				return ErrAlreadyFinalized
			}
			return err
		}
		// Return and cache exactly what later reads will see.
		if report, err = tx.Reports().FindByPeriod(ctx, year, month); err != nil {
			return err
		}

		state.Advance(now)
		next = state.OpenPeriod()
		return tx.Ledger().Save(ctx, state)
	})
	if err != nil {
		if !IsClientError(err) {
			logger.LogError(s.log, "rollover", "FinalizeMonth", "finalize month", period.String(), err)
		}
		return nil, classify(err)
	}

	if err := s.cache.Set(ctx, report); err != nil {
		s.log.WithError(err).WithField("period", period.String()).Warn("report cache write failed")
	}

	s.log.WithFields(logrus.Fields{
		"period":       period.String(),
		"open_period":  next.String(),
		"total_sales":  report.TotalSales.String(),
		"total_profit": report.TotalProfit.String(),
	}).Info("month finalized")

	publish(s.hub, EventMonthFinalized, map[string]interface{}{
		"year":         report.Year,
		"month":        report.Month,
		"total_sales":  report.TotalSales,
		"total_profit": report.TotalProfit,
		"open_year":    next.Year,
		"open_month":   int(next.Month),
	})
	return report, nil
}
