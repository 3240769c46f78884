package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSaleScenario(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "OIL-5W30")
	b1 := env.batch(t, p.ID, 10, "3", day(2025, 1, 1))

	first, err := env.sell(p.ID, 4, "5", day(2025, 1, 5))
	require.NoError(t, err)
	require.Len(t, first.Sales, 1)
	sale := first.Sales[0]
	assert.Equal(t, 4, sale.Quantity)
	assertDecimal(t, "3", sale.PurchasePrice)
	assertDecimal(t, "20", sale.Revenue())
	assertDecimal(t, "8", sale.Profit)
	assertDecimal(t, "40", sale.ProfitMargin)
	assert.Equal(t, 6, env.batchQty(t, b1.ID))
	assert.Equal(t, 6, env.totalStock(t, p.ID))
	assert.Equal(t, 6, first.RemainingStock)

	b2 := env.batch(t, p.ID, 5, "4", day(2025, 1, 10))
	assert.Equal(t, 11, env.totalStock(t, p.ID))

	second, err := env.sell(p.ID, 8, "5", day(2025, 1, 15))
	require.NoError(t, err)
	require.Len(t, second.Sales, 2)
	assert.Equal(t, b1.ID, second.Sales[0].BatchID)
	assert.Equal(t, 6, second.Sales[0].Quantity)
	assertDecimal(t, "3", second.Sales[0].PurchasePrice)
	assert.Equal(t, b2.ID, second.Sales[1].BatchID)
	assert.Equal(t, 2, second.Sales[1].Quantity)
	assertDecimal(t, "4", second.Sales[1].PurchasePrice)
	assert.Equal(t, second.TransactionID, second.Sales[1].TransactionID)
	assertDecimal(t, "40", second.Revenue)
	assertDecimal(t, "26", second.Cost)
	assertDecimal(t, "14", second.Profit)

	depleted, err := env.store.Batches().FindByID(context.Background(), b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, depleted.CurrentQuantity)
	assert.Equal(t, model.BatchDepleted, depleted.Status)
	assert.Equal(t, 3, env.batchQty(t, b2.ID))
	assert.Equal(t, 3, env.totalStock(t, p.ID))

	env.requireBalanced(t)
	assert.Contains(t, env.events.types(), EventSaleRecorded)
}

func TestRecordSaleAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "BRK-01")
	b1 := env.batch(t, p.ID, 3, "2", day(2025, 1, 1))
	b2 := env.batch(t, p.ID, 4, "2", day(2025, 1, 2))

	_, err := env.sell(p.ID, 8, "5", day(2025, 1, 3))
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 7, stockErr.Available)

	assert.Equal(t, 3, env.batchQty(t, b1.ID))
	assert.Equal(t, 4, env.batchQty(t, b2.ID))
	assert.Equal(t, 7, env.totalStock(t, p.ID))

	sales, err := env.sales.ListProductSales(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestRecordSaleRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "FLT-01")
	env.batch(t, p.ID, 3, "2", day(2025, 1, 1))

	_, err := env.sell(p.ID, 0, "5", day(2025, 1, 2))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.sell(p.ID, -2, "5", day(2025, 1, 2))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.sell(p.ID, 1, "-1", day(2025, 1, 2))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = env.sell(uuid.Nil, 1, "5", day(2025, 1, 2))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.sell(uuid.New(), 1, "5", day(2025, 1, 2))
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, IsClientError(err))
}

func TestRecordSaleNeedsStockReceivedBeforeSaleDate(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "SPK-01")
	env.batch(t, p.ID, 5, "2", day(2025, 1, 20))

	_, err := env.sell(p.ID, 1, "5", day(2025, 1, 10))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.sell(p.ID, 1, "5", day(2025, 1, 20))
	assert.NoError(t, err)
}

func TestConcurrentSalesOfLastStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "ALT-01")
	b := env.batch(t, p.ID, 5, "50", day(2025, 1, 1))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.sell(p.ID, 5, "80", day(2025, 1, 2))
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrConcurrentStockConflict):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, env.batchQty(t, b.ID))
	assert.Equal(t, 0, env.totalStock(t, p.ID))
	env.requireBalanced(t)
}

func TestConcurrentSalesConserveStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "BLT-01")
	env.batch(t, p.ID, 20, "1", day(2025, 1, 1))
	env.batch(t, p.ID, 20, "2", day(2025, 1, 2))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sold    int
		failing int
	)
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sell(p.ID, 3, "4", day(2025, 1, 3))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sold += 3
			} else {
				failing++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 39, sold)
	assert.Equal(t, 2, failing)
	assert.Equal(t, 1, env.totalStock(t, p.ID))
	env.requireBalanced(t)
}

func TestRecordSaleRetriesLostRace(t *testing.T) {
	flaky := &flakyStore{Store: memory.NewStore()}
	env := newTestEnvWithStore(t, flaky, jan2025)
	p := env.product(t, "RAD-01")
	b := env.batch(t, p.ID, 5, "10", day(2025, 1, 1))

	flaky.failures.Store(2)
	res, err := env.sell(p.ID, 2, "15", day(2025, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, 3, env.batchQty(t, b.ID))
	env.requireBalanced(t)
}

func TestRecordSaleGivesUpAfterRetries(t *testing.T) {
	flaky := &flakyStore{Store: memory.NewStore()}
	env := newTestEnvWithStore(t, flaky, jan2025)
	p := env.product(t, "RAD-02")
	b := env.batch(t, p.ID, 5, "10", day(2025, 1, 1))

	flaky.failures.Store(-1)
	_, err := env.sell(p.ID, 2, "15", day(2025, 1, 2))
	require.ErrorIs(t, err, ErrConcurrentStockConflict)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(DefaultSaleRetries), flaky.calls.Load())

	assert.Equal(t, 5, env.batchQty(t, b.ID))
	sales, err := env.sales.ListProductSales(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestRecordSaleIntoClosedPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "WPR-01")
	env.batch(t, p.ID, 10, "3", day(2025, 1, 1))

	_, err := env.rollover.FinalizeMonth(ctx, 2025, 1)
	require.NoError(t, err)

	_, err = env.sell(p.ID, 1, "5", day(2025, 1, 31))
	assert.ErrorIs(t, err, ErrPeriodClosed)

	_, err = env.sell(p.ID, 1, "5", day(2025, 2, 1))
	assert.NoError(t, err)
}

func TestGetTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "HDL-01")
	env.batch(t, p.ID, 2, "3", day(2025, 1, 1))
	env.batch(t, p.ID, 2, "4", day(2025, 1, 2))

	res, err := env.sell(p.ID, 3, "6", day(2025, 1, 3))
	require.NoError(t, err)

	sales, err := env.sales.GetTransaction(ctx, res.TransactionID)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	for _, s := range sales {
		assert.Equal(t, res.TransactionID, s.TransactionID)
		require.NotNil(t, s.Product)
		assert.Equal(t, "HDL-01", s.Product.SKU)
	}

	_, err = env.sales.GetTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestListSalesInRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "LMP-01")
	env.batch(t, p.ID, 10, "1", day(2025, 1, 1))

	for _, d := range []int{3, 10, 20} {
		_, err := env.sell(p.ID, 1, "2", day(2025, 1, d))
		require.NoError(t, err)
	}

	sales, err := env.sales.ListSales(ctx, day(2025, 1, 5), day(2025, 1, 15))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 10, sales[0].SaleDate.Day())

	all, err := env.sales.ListSales(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
