package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher pushes ledger events to connected clients.
type EventPublisher interface {
	Publish(eventType string, data any)
}

const (
	EventProductCreated  = "product_created"
	EventBatchCreated    = "batch_created"
	EventSaleRecorded    = "sale_recorded"
	EventReportRefreshed = "report_refreshed"
	EventMonthFinalized  = "month_finalized"
)

func publish(p EventPublisher, eventType string, data any) {
	if p == nil {
		return
	}
	p.Publish(eventType, data)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// lockOpenLedger takes the shared ledger lock for a posting dated at and
// rejects postings into finalized months.
func lockOpenLedger(ctx context.Context, tx repository.Repositories, at time.Time) (*model.LedgerState, error) {
	state, err := tx.Ledger().Lock(ctx, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLedgerNotInitialized
	} else if err != nil {
		return nil, err
	}

	if period := model.PeriodOf(at); period.Before(state.OpenPeriod()) {
		return nil, fmt.Errorf("%w: %s is finalized, open period is %s", ErrPeriodClosed, period, state.OpenPeriod())
	}
	return state, nil
}

// syncTotalStock recomputes the product's stock counter from its batches.
func syncTotalStock(ctx context.Context, tx repository.Repositories, productID uuid.UUID) (int, error) {
	total, err := tx.Batches().SumCurrentByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if err := tx.Products().UpdateTotalStock(ctx, productID, total); err != nil {
		return 0, err
	}
	return total, nil
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateProductRequest struct {
	SKU           string          `json:"sku" validate:"required,max=50"`
	Name          string          `json:"name" validate:"required,max=255"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"gte=0"`
	MinStockLevel int             `json:"min_stock_level" validate:"gte=0"`
}

type CreateBatchRequest struct {
	PurchaseDate  time.Time       `json:"purchase_date"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Quantity      int             `json:"quantity"`
	Supplier      string          `json:"supplier" validate:"max=255"`
	InvoiceNumber string          `json:"invoice_number" validate:"max=100"`
}

type RecordSaleRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"uuid_required"`
	Quantity      int             `json:"quantity"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	SaleDate      time.Time       `json:"sale_date"`
	CustomerID    *string         `json:"customer_id" validate:"omitempty,max=100"`
	InvoiceNumber *string         `json:"invoice_number" validate:"omitempty,max=100"`
}
