package repository

import (
	"context"
	"time"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	// ListByProduct returns every batch of the product, oldest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error)
	// ListActiveByProduct returns batches with stock left, oldest purchase
	// date first and insertion order on ties.
	ListActiveByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error)
	// ListPurchasedBefore returns batches of all products purchased strictly
	// before the given instant, oldest first.
	ListPurchasedBefore(ctx context.Context, before time.Time) ([]model.Batch, error)
	// Decrement takes amount units out of the batch as read by the caller.
	// It fails with ErrInsufficientBatchQuantity or ErrBatchVersionConflict
	// when the row no longer matches what the caller saw.
	Decrement(ctx context.Context, batch model.Batch, amount int) (*model.Batch, error)
	SumCurrentByProduct(ctx context.Context, productID uuid.UUID) (int, error)
}

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db}
}

const fifoOrder = "purchase_date ASC, seq ASC"

func (r *batchRepo) Create(ctx context.Context, batch *model.Batch) error {
	return translate(r.db.WithContext(ctx).Omit("Product").Create(batch).Error)
}

func (r *batchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

func (r *batchRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order(fifoOrder).
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) ListActiveByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND current_quantity > 0", productID).
		Order(fifoOrder).
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) ListPurchasedBefore(ctx context.Context, before time.Time) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).
		Where("purchase_date < ?", before).
		Order(fifoOrder).
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) Decrement(ctx context.Context, batch model.Batch, amount int) (*model.Batch, error) {
	db := r.db.WithContext(ctx)

	// Compare-and-set on version; the quantity guard keeps the row valid even
	// if a caller passes a stale version by mistake.
	res := db.Model(&model.Batch{}).
		Where("id = ? AND version = ? AND current_quantity >= ?", batch.ID, batch.Version, amount).
		Updates(map[string]interface{}{
			"current_quantity": gorm.Expr("current_quantity - ?", amount),
			"version":          gorm.Expr("version + 1"),
			"status": gorm.Expr("CASE WHEN current_quantity - ? = 0 THEN ? ELSE ? END",
				amount, model.BatchDepleted, model.BatchActive),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var current model.Batch
	if err := db.First(&current, "id = ?", batch.ID).Error; err != nil {
		return nil, translate(err)
	}
	if res.RowsAffected == 0 {
		if current.CurrentQuantity < amount {
			return nil, ErrInsufficientBatchQuantity
		}
		return nil, ErrBatchVersionConflict
	}
	return &current, nil
}

func (r *batchRepo) SumCurrentByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&model.Batch{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(current_quantity), 0)").
		Scan(&total).Error
	return total, err
}
