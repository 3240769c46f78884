package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/pkg/database"
	"go-parts-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to the database named by LEDGER_TEST_DATABASE_URL.
// The tests create their own rows with random SKUs and never truncate.
func openTestStore(t *testing.T) repository.Store {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	db, err := database.ConnectDB(database.Config{DSN: dsn}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func seedPostgresBatch(t *testing.T, store repository.Store, qty int) *model.Batch {
	t.Helper()
	ctx := context.Background()

	product := &model.Product{
		SKU:          "IT-" + uuid.NewString()[:8],
		Name:         "Integration part",
		SellingPrice: decimal.NewFromInt(20),
	}
	require.NoError(t, store.Products().Create(ctx, product))

	batch := &model.Batch{
		ProductID:       product.ID,
		PurchaseDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PurchasePrice:   decimal.NewFromInt(8),
		InitialQuantity: qty,
		CurrentQuantity: qty,
		Status:          model.BatchActive,
	}
	require.NoError(t, store.Batches().Create(ctx, batch))
	require.NotZero(t, batch.Seq)
	return batch
}

func TestPostgresDecrementRejectsStaleVersion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	batch := seedPostgresBatch(t, store, 4)

	updated, err := store.Batches().Decrement(ctx, *batch, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CurrentQuantity)

	_, err = store.Batches().Decrement(ctx, *batch, 1)
	assert.ErrorIs(t, err, repository.ErrBatchVersionConflict)

	_, err = store.Batches().Decrement(ctx, *updated, 5)
	assert.ErrorIs(t, err, repository.ErrInsufficientBatchQuantity)

	depleted, err := store.Batches().Decrement(ctx, *updated, 3)
	require.NoError(t, err)
	assert.Equal(t, model.BatchDepleted, depleted.Status)
}

func TestPostgresConcurrentDecrementSameRead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	batch := seedPostgresBatch(t, store, 1)

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Batches().Decrement(ctx, *batch, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrBatchVersionConflict),
				errors.Is(err, repository.ErrInsufficientBatchQuantity):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	left, err := store.Batches().FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left.CurrentQuantity)
}

func TestPostgresTransactionRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	batch := seedPostgresBatch(t, store, 2)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Batches().Decrement(ctx, *batch, 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := store.Batches().FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.CurrentQuantity)
	assert.Equal(t, batch.Version, after.Version)
}

func TestPostgresFinalizedReportDataReadsBackVerbatim(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// A far-future period no real ledger reaches.
	year := 3000 + int(uuid.New().ID()%5000)
	data := model.ReportData{
		Year:  year,
		Month: 6,
		Products: []model.ProductReportLine{{
			ProductID:        uuid.New(),
			ProductName:      "Oil filter",
			SKU:              "OF-1",
			StartingQuantity: 3,
			EndingQuantity:   3,
			Revenue:          decimal.Zero,
			Cost:             decimal.Zero,
			Profit:           decimal.Zero,
			ProfitMargin:     decimal.Zero,
			InventoryValue:   decimal.RequireFromString("12.5"),
		}},
		Totals: model.ReportTotals{
			StartingQuantity: 3,
			EndingQuantity:   3,
			Revenue:          decimal.Zero,
			Cost:             decimal.Zero,
			Profit:           decimal.Zero,
			ProfitMargin:     decimal.Zero,
			InventoryValue:   decimal.RequireFromString("12.5"),
		},
	}
	encoded, err := json.Marshal(data)
	require.NoError(t, err)

	now := time.Now().UTC()
	report := &model.MonthlyReport{
		Year:                year,
		Month:               6,
		TotalSales:          decimal.Zero,
		TotalProfit:         decimal.Zero,
		AverageProfitMargin: decimal.Zero,
		FinalizedAt:         &now,
		GeneratedAt:         now,
		ReportData:          string(encoded),
	}
	require.NoError(t, store.Reports().Finalize(ctx, report))

	for i := 0; i < 2; i++ {
		stored, err := store.Reports().FindByPeriod(ctx, year, 6)
		require.NoError(t, err)
		assert.True(t, stored.IsFinalized)
		assert.Equal(t, string(encoded), stored.ReportData)
	}
}

func TestPostgresStoresDeepLossMargin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	batch := seedPostgresBatch(t, store, 1)

	sale := model.Sale{
		TransactionID: uuid.New(),
		ProductID:     batch.ProductID,
		BatchID:       batch.ID,
		Quantity:      1,
		SalePrice:     decimal.RequireFromString("0.01"),
		PurchasePrice: decimal.NewFromInt(11),
		SaleDate:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	sale.ComputeProfit()
	require.NoError(t, store.Sales().CreateMany(ctx, []model.Sale{sale}))

	stored, err := store.Sales().FindByTransaction(ctx, sale.TransactionID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].ProfitMargin.Equal(decimal.NewFromInt(-109900)), stored[0].ProfitMargin.String())
}
