package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repositories groups the ledger repositories. Inside Store.Transaction every
// repository shares the same unit of work.
type Repositories interface {
	Categories() CategoryRepository
	Products() ProductRepository
	Batches() BatchRepository
	Sales() SaleRepository
	Reports() ReportRepository
	Ledger() LedgerRepository
}

type Store interface {
	Repositories

	// Transaction runs fn in one unit of work. Returning an error from fn
	// rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db}
}

func (s *gormStore) Categories() CategoryRepository { return NewCategoryRepo(s.db) }
func (s *gormStore) Products() ProductRepository { return NewProductRepo(s.db) }
func (s *gormStore) Batches() BatchRepository { return NewBatchRepo(s.db) }
func (s *gormStore) Sales() SaleRepository { return NewSaleRepo(s.db) }
func (s *gormStore) Reports() ReportRepository { return NewReportRepo(s.db) }
func (s *gormStore) Ledger() LedgerRepository { return NewLedgerRepo(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func forShare(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "SHARE"})
}
