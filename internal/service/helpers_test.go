package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-parts-ledger/internal/lock"
	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/internal/repository/memory"
	"go-parts-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store     repository.Store
	locker    *lock.LocalLocker
	events    *recordingPublisher
	inventory InventoryService
	sales     SaleService
	reports   ReportService
	rollover  RolloverService
	ledger    LedgerService
}

var jan2025 = model.Period{Year: 2025, Month: time.January}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, memory.NewStore(), jan2025)
}

func newTestEnvWithStore(t *testing.T, store repository.Store, start model.Period) *testEnv {
	t.Helper()
	log := logger.Discard()
	events := &recordingPublisher{}
	locker := lock.NewLocalLocker(20 * time.Millisecond)

	env := &testEnv{
		store:     store,
		locker:    locker,
		events:    events,
		inventory: NewInventoryService(store, events, log),
		sales:     NewSaleService(store, events, log, DefaultSaleRetries),
		reports:   NewReportService(store, nil, events, log),
		rollover:  NewRolloverService(store, locker, nil, events, log),
		ledger:    NewLedgerService(store),
	}
	_, err := env.rollover.Initialize(context.Background(), start)
	require.NoError(t, err)
	return env
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func (e *testEnv) product(t *testing.T, sku string) *ProductView {
	t.Helper()
	p, err := e.inventory.CreateProduct(context.Background(), &CreateProductRequest{
		SKU:           sku,
		Name:          "Part " + sku,
		SellingPrice:  dec("5"),
		MinStockLevel: 2,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) batch(t *testing.T, productID uuid.UUID, qty int, cost string, at time.Time) *model.Batch {
	t.Helper()
	b, err := e.inventory.CreateBatch(context.Background(), productID, &CreateBatchRequest{
		PurchaseDate:  at,
		PurchasePrice: dec(cost),
		Quantity:      qty,
		Supplier:      "Acme Parts",
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) sell(productID uuid.UUID, qty int, price string, at time.Time) (*SaleResult, error) {
	return e.sales.RecordSale(context.Background(), &RecordSaleRequest{
		ProductID: productID,
		Quantity:  qty,
		SalePrice: dec(price),
		SaleDate:  at,
	})
}

func (e *testEnv) batchQty(t *testing.T, id uuid.UUID) int {
	t.Helper()
	b, err := e.store.Batches().FindByID(context.Background(), id)
	require.NoError(t, err)
	return b.CurrentQuantity
}

func (e *testEnv) totalStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.TotalStock
}

func (e *testEnv) requireBalanced(t *testing.T) {
	t.Helper()
	check, err := e.ledger.VerifyStock(context.Background())
	require.NoError(t, err)
	require.True(t, check.Balanced, "stock issues: %+v", check.Issues)
}

// flakyStore makes batch decrements inside transactions fail with a version
// conflict, as if another writer got there first.
type flakyStore struct {
	repository.Store
	failures atomic.Int32 // remaining failures; negative means fail forever
	calls    atomic.Int32
}

func (f *flakyStore) Transaction(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return f.Store.Transaction(ctx, func(tx repository.Repositories) error {
		return fn(flakyTx{Repositories: tx, store: f})
	})
}

type flakyTx struct {
	repository.Repositories
	store *flakyStore
}

func (t flakyTx) Batches() repository.BatchRepository {
	return flakyBatches{BatchRepository: t.Repositories.Batches(), store: t.store}
}

type flakyBatches struct {
	repository.BatchRepository
	store *flakyStore
}

func (b flakyBatches) Decrement(ctx context.Context, batch model.Batch, amount int) (*model.Batch, error) {
	b.store.calls.Add(1)
	if remaining := b.store.failures.Load(); remaining != 0 {
		if remaining > 0 {
			b.store.failures.Add(-1)
		}
		return nil, repository.ErrBatchVersionConflict
	}
	return b.BatchRepository.Decrement(ctx, batch, amount)
}
