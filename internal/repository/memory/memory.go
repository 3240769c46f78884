// Package memory is an in-process implementation of repository.Store. It keeps
// every table in maps guarded by one mutex and runs transactions against a
// private copy that replaces the shared state on commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

type state struct {
	categories map[uuid.UUID]model.Category
	products   map[uuid.UUID]model.Product
	batches    map[uuid.UUID]model.Batch
	sales      []model.Sale
	reports    map[model.Period]model.MonthlyReport
	ledger     *model.LedgerState
	seq        int64
}

func newState() *state {
	return &state{
		categories: map[uuid.UUID]model.Category{},
		products:   map[uuid.UUID]model.Product{},
		batches:    map[uuid.UUID]model.Batch{},
		reports:    map[model.Period]model.MonthlyReport{},
	}
}

func (st *state) clone() *state {
	c := &state{
		categories: make(map[uuid.UUID]model.Category, len(st.categories)),
		products:   make(map[uuid.UUID]model.Product, len(st.products)),
		batches:    make(map[uuid.UUID]model.Batch, len(st.batches)),
		sales:      append([]model.Sale(nil), st.sales...),
		reports:    make(map[model.Period]model.MonthlyReport, len(st.reports)),
		seq:        st.seq,
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.batches {
		c.batches[k] = v
	}
	for k, v := range st.reports {
		c.reports[k] = v
	}
	if st.ledger != nil {
		l := *st.ledger
		c.ledger = &l
	}
	return c
}

// view is a set of repositories bound either to the shared state, taking the
// store mutex per call, or to a transaction's private copy.
type view struct {
	store *Store
	tx    *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (s *Store) Categories() repository.CategoryRepository { return &categoryRepo{&view{store: s}} }
func (s *Store) Products() repository.ProductRepository { return &productRepo{&view{store: s}} }
func (s *Store) Batches() repository.BatchRepository { return &batchRepo{&view{store: s}} }
func (s *Store) Sales() repository.SaleRepository { return &saleRepo{&view{store: s}} }
func (s *Store) Reports() repository.ReportRepository { return &reportRepo{&view{store: s}} }
func (s *Store) Ledger() repository.LedgerRepository { return &ledgerRepo{&view{store: s}} }

// Transaction serializes with every other call on the store.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&txRepos{&view{tx: work}}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type txRepos struct {
	v *view
}

func (t *txRepos) Categories() repository.CategoryRepository { return &categoryRepo{t.v} }
func (t *txRepos) Products() repository.ProductRepository { return &productRepo{t.v} }
func (t *txRepos) Batches() repository.BatchRepository { return &batchRepo{t.v} }
func (t *txRepos) Sales() repository.SaleRepository { return &saleRepo{t.v} }
func (t *txRepos) Reports() repository.ReportRepository { return &reportRepo{t.v} }
func (t *txRepos) Ledger() repository.LedgerRepository { return &ledgerRepo{t.v} }

func now() time.Time {
	return time.Now().UTC()
}

func stamp(base *model.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	t := now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = t
	}
	base.UpdatedAt = t
}

// categories

type categoryRepo struct{ v *view }

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.v.do(func(st *state) error {
		for _, c := range st.categories {
			if strings.EqualFold(c.Name, category.Name) {
				return repository.ErrDuplicate
			}
		}
		stamp(&category.BaseModel)
		st.categories[category.ID] = *category
		return nil
	})
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := r.v.do(func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var out model.Category
	err := r.v.do(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// products

type productRepo struct{ v *view }

func withCategory(st *state, p model.Product) model.Product {
	p.Category = nil
	p.Batches = nil
	if p.CategoryID != nil {
		if c, ok := st.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return p
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.v.do(func(st *state) error {
		for _, p := range st.products {
			if p.SKU == product.SKU {
				return repository.ErrDuplicate
			}
		}
		if product.CategoryID != nil {
			if _, ok := st.categories[*product.CategoryID]; !ok {
				return repository.ErrNotFound
			}
		}
		stamp(&product.BaseModel)
		stored := *product
		stored.Category = nil
		stored.Batches = nil
		st.products[product.ID] = stored
		return nil
	})
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			out = append(out, withCategory(st, p))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, err
}

func (r *productRepo) find(id uuid.UUID) (*model.Product, error) {
	var out model.Product
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withCategory(st, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(id)
}

// LockByID is a plain read; transactions already run one at a time.
func (r *productRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(id)
}

func (r *productRepo) UpdateTotalStock(ctx context.Context, id uuid.UUID, totalStock int) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.TotalStock = totalStock
		p.UpdatedAt = now()
		st.products[id] = p
		return nil
	})
}

// batches

type batchRepo struct{ v *view }

func sortFIFO(batches []model.Batch) {
	sort.Slice(batches, func(i, j int) bool { return batches[i].PurchasedBefore(&batches[j]) })
}

func (r *batchRepo) collect(match func(b *model.Batch) bool) ([]model.Batch, error) {
	var out []model.Batch
	err := r.v.do(func(st *state) error {
		for _, b := range st.batches {
			if match(&b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sortFIFO(out)
	return out, err
}

func (r *batchRepo) Create(ctx context.Context, batch *model.Batch) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.products[batch.ProductID]; !ok {
			return repository.ErrNotFound
		}
		stamp(&batch.BaseModel)
		st.seq++
		batch.Seq = st.seq
		stored := *batch
		stored.Product = nil
		st.batches[batch.ID] = stored
		return nil
	})
}

func (r *batchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var out model.Batch
	err := r.v.do(func(st *state) error {
		b, ok := st.batches[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *batchRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	return r.collect(func(b *model.Batch) bool { return b.ProductID == productID })
}

func (r *batchRepo) ListActiveByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	return r.collect(func(b *model.Batch) bool {
		return b.ProductID == productID && b.CurrentQuantity > 0
	})
}

func (r *batchRepo) ListPurchasedBefore(ctx context.Context, before time.Time) ([]model.Batch, error) {
	return r.collect(func(b *model.Batch) bool { return b.PurchaseDate.Before(before) })
}

func (r *batchRepo) Decrement(ctx context.Context, batch model.Batch, amount int) (*model.Batch, error) {
	var out model.Batch
	err := r.v.do(func(st *state) error {
		current, ok := st.batches[batch.ID]
		switch {
		case !ok:
			return repository.ErrNotFound
		case current.CurrentQuantity < amount:
			return repository.ErrInsufficientBatchQuantity
		case current.Version != batch.Version:
			return repository.ErrBatchVersionConflict
		}
		current.CurrentQuantity -= amount
		current.Version++
		current.Status = current.DerivedStatus()
		current.UpdatedAt = now()
		st.batches[batch.ID] = current
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *batchRepo) SumCurrentByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	total := 0
	err := r.v.do(func(st *state) error {
		for _, b := range st.batches {
			if b.ProductID == productID {
				total += b.CurrentQuantity
			}
		}
		return nil
	})
	return total, err
}

// sales

type saleRepo struct{ v *view }

func (r *saleRepo) CreateMany(ctx context.Context, sales []model.Sale) error {
	return r.v.do(func(st *state) error {
		for i := range sales {
			if _, ok := st.batches[sales[i].BatchID]; !ok {
				return repository.ErrNotFound
			}
			stamp(&sales[i].BaseModel)
			stored := sales[i]
			stored.Product = nil
			stored.Batch = nil
			st.sales = append(st.sales, stored)
		}
		return nil
	})
}

func (r *saleRepo) filter(match func(s *model.Sale) bool) ([]model.Sale, error) {
	var out []model.Sale
	err := r.v.do(func(st *state) error {
		for _, s := range st.sales {
			if match(&s) {
				out = append(out, s)
			}
		}
		return nil
	})
	// st.sales is in insertion order, so a stable sort keeps creation order
	// on equal dates.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaleDate.Before(out[j].SaleDate) })
	return out, err
}

func (r *saleRepo) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.Sale, error) {
	sales, err := r.filter(func(s *model.Sale) bool { return s.TransactionID == transactionID })
	if err != nil {
		return nil, err
	}
	err = r.v.do(func(st *state) error {
		for i := range sales {
			if p, ok := st.products[sales[i].ProductID]; ok {
				p = withCategory(st, p)
				sales[i].Product = &p
			}
		}
		return nil
	})
	return sales, err
}

func (r *saleRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Sale, error) {
	sales, err := r.filter(func(s *model.Sale) bool { return s.ProductID == productID })
	for i, j := 0, len(sales)-1; i < j; i, j = i+1, j-1 {
		sales[i], sales[j] = sales[j], sales[i]
	}
	return sales, err
}

func (r *saleRepo) ListInRange(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	return r.filter(func(s *model.Sale) bool {
		if !from.IsZero() && s.SaleDate.Before(from) {
			return false
		}
		if !to.IsZero() && !s.SaleDate.Before(to) {
			return false
		}
		return true
	})
}

// reports

type reportRepo struct{ v *view }

func (r *reportRepo) FindByPeriod(ctx context.Context, year, month int) (*model.MonthlyReport, error) {
	var out model.MonthlyReport
	err := r.v.do(func(st *state) error {
		rep, ok := st.reports[model.Period{Year: year, Month: time.Month(month)}]
		if !ok {
			return repository.ErrNotFound
		}
		out = rep
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *reportRepo) FindAll(ctx context.Context) ([]model.MonthlyReport, error) {
	var out []model.MonthlyReport
	err := r.v.do(func(st *state) error {
		for _, rep := range st.reports {
			out = append(out, rep)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[j].Period().Before(out[i].Period()) })
	return out, err
}

func (r *reportRepo) SaveDraft(ctx context.Context, report *model.MonthlyReport) error {
	report.IsFinalized = false
	report.FinalizedAt = nil
	return r.upsert(report)
}

func (r *reportRepo) Finalize(ctx context.Context, report *model.MonthlyReport) error {
	report.IsFinalized = true
	return r.upsert(report)
}

func (r *reportRepo) upsert(report *model.MonthlyReport) error {
	return r.v.do(func(st *state) error {
		key := report.Period()
		if existing, ok := st.reports[key]; ok {
			if existing.IsFinalized {
				return repository.ErrReportFinalized
			}
			report.ID = existing.ID
			report.CreatedAt = existing.CreatedAt
		}
		stamp(&report.BaseModel)
		st.reports[key] = *report
		return nil
	})
}

// ledger

type ledgerRepo struct{ v *view }

func (r *ledgerRepo) Get(ctx context.Context) (*model.LedgerState, error) {
	var out model.LedgerState
	err := r.v.do(func(st *state) error {
		if st.ledger == nil {
			return repository.ErrNotFound
		}
		out = *st.ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ledgerRepo) Lock(ctx context.Context, exclusive bool) (*model.LedgerState, error) {
	return r.Get(ctx)
}

func (r *ledgerRepo) Init(ctx context.Context, period model.Period) (*model.LedgerState, error) {
	err := r.v.do(func(st *state) error {
		if st.ledger == nil {
			st.ledger = &model.LedgerState{
				ID:        model.LedgerStateID,
				OpenYear:  period.Year,
				OpenMonth: int(period.Month),
				UpdatedAt: now(),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}

func (r *ledgerRepo) Save(ctx context.Context, ledger *model.LedgerState) error {
	return r.v.do(func(st *state) error {
		s := *ledger
		s.ID = model.LedgerStateID
		s.UpdatedAt = now()
		st.ledger = &s
		return nil
	})
}
