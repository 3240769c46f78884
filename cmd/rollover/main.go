// Command rollover closes a month from the command line, for cron-driven
// month end. Without -period it finalizes the currently open month.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go-parts-ledger/internal/cache"
	"go-parts-ledger/internal/config"
	"go-parts-ledger/internal/lock"
	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/internal/service"
	"go-parts-ledger/pkg/database"
	"go-parts-ledger/pkg/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	periodFlag := flag.String("period", "", "month to finalize, YYYY-MM (default: the open month)")
	dryRun := flag.Bool("dry-run", false, "refresh the draft and verify it without finalizing")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	// 1. Load Env
	boot := logger.New("info", os.Stdout)
	config.LoadEnv(boot)
	cfg, err := config.Load()
	if err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, os.Stdout)

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	store := repository.NewStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		locker      lock.Locker       = lock.NewLocalLocker(cfg.PeriodLockTTL)
		reportCache cache.ReportCache = cache.NoopReportCache{}
	)
	if cfg.RedisEnabled() {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Other instances may hold the period lock in Redis; do not close
			// the month without it.
			log.WithError(err).Fatal("redis configured but unreachable")
		}
		locker = lock.NewRedisLocker(rdb, cfg.PeriodLockTTL, cfg.PeriodLockTTL, log)
		reportCache = cache.NewRedisReportCache(rdb)
	}

	rollover := service.NewRolloverService(store, locker, reportCache, nil, log)
	reports := service.NewReportService(store, reportCache, nil, log)

	// 3. Resolve period
	period, err := rollover.CurrentPeriod(ctx)
	if err != nil {
		log.WithError(err).Fatal("cannot read ledger state")
	}
	if *periodFlag != "" {
		if period, err = model.ParsePeriod(*periodFlag); err != nil {
			log.WithError(err).Fatal("bad -period")
		}
	}

	if *dryRun {
		draft, err := reports.RefreshDraft(ctx, period.Year, int(period.Month))
		if err != nil {
			log.WithError(err).Fatal("refresh draft failed")
		}
		check, err := reports.VerifyReport(ctx, period.Year, int(period.Month))
		if err != nil {
			log.WithError(err).Fatal("verify draft failed")
		}
		log.WithFields(logrus.Fields{
			"period":      period.String(),
			"total_sales": draft.TotalSales.String(),
			"balanced":    check.Balanced,
			"issues":      check.Issues,
		}).Info("dry run complete")
		return
	}

	// 4. Finalize
	report, err := rollover.FinalizeMonth(ctx, period.Year, int(period.Month))
	if err != nil {
		log.WithError(err).WithField("period", period.String()).Fatal("finalize failed")
	}

	log.WithFields(logrus.Fields{
		"period":       period.String(),
		"total_sales":  report.TotalSales.String(),
		"total_profit": report.TotalProfit.String(),
	}).Info("month finalized")
}
