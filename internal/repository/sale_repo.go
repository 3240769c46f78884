package repository

import (
	"context"
	"time"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	// CreateMany inserts the rows of one sale transaction.
	CreateMany(ctx context.Context, sales []model.Sale) error
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.Sale, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Sale, error)
	// ListInRange returns sales with from <= sale_date < to. A zero bound is
	// open.
	ListInRange(ctx context.Context, from, to time.Time) ([]model.Sale, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) CreateMany(ctx context.Context, sales []model.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Omit("Product", "Batch").Create(&sales).Error)
}

func (r *saleRepo) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("transaction_id = ?", transactionID).
		Order("sale_date ASC, created_at ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sale_date DESC, created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListInRange(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	query := r.db.WithContext(ctx).Model(&model.Sale{})
	if !from.IsZero() {
		query = query.Where("sale_date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("sale_date < ?", to)
	}

	var sales []model.Sale
	err := query.Order("sale_date ASC, created_at ASC").Find(&sales).Error
	return sales, err
}
