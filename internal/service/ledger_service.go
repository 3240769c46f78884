package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-parts-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerSummary struct {
	OpenPeriod      string          `json:"open_period"`
	LastFinalizedAt *time.Time      `json:"last_finalized_at,omitempty"`
	ProductCount    int             `json:"product_count"`
	LowStockCount   int             `json:"low_stock_count"`
	TotalUnits      int             `json:"total_units"`
	InventoryValue  decimal.Decimal `json:"inventory_value"`
}

type StockIssue struct {
	ProductID uuid.UUID  `json:"product_id"`
	SKU       string     `json:"sku"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	Message   string     `json:"message"`
}

type StockCheck struct {
	Balanced bool         `json:"balanced"`
	Products int          `json:"products"`
	Batches  int          `json:"batches"`
	Issues   []StockIssue `json:"issues"`
}

type LedgerService interface {
	Summary(ctx context.Context) (*LedgerSummary, error)
	// VerifyStock checks every product's stock counter against its batches
	// and every batch against its bounds.
	VerifyStock(ctx context.Context) (*StockCheck, error)
}

type ledgerService struct {
	store repository.Store
}

func NewLedgerService(store repository.Store) LedgerService {
	return &ledgerService{store: store}
}

func (s *ledgerService) Summary(ctx context.Context) (*LedgerSummary, error) {
	summary := &LedgerSummary{InventoryValue: decimal.Zero}

	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		state, err := tx.Ledger().Get(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLedgerNotInitialized
		} else if err != nil {
			return err
		}
		summary.OpenPeriod = state.OpenPeriod().String()
		summary.LastFinalizedAt = state.LastFinalizedAt

		products, err := tx.Products().FindAll(ctx)
		if err != nil {
			return err
		}
		summary.ProductCount = len(products)

		for _, p := range products {
			if p.IsLowStock() {
				summary.LowStockCount++
			}
			batches, err := tx.Batches().ListActiveByProduct(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, b := range batches {
				summary.TotalUnits += b.CurrentQuantity
				summary.InventoryValue = summary.InventoryValue.Add(
					b.PurchasePrice.Mul(decimal.NewFromInt(int64(b.CurrentQuantity))))
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return summary, nil
}

func (s *ledgerService) VerifyStock(ctx context.Context) (*StockCheck, error) {
	check := &StockCheck{Issues: []StockIssue{}}

	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		products, err := tx.Products().FindAll(ctx)
		if err != nil {
			return err
		}
		check.Products = len(products)

		for _, p := range products {
			batches, err := tx.Batches().ListByProduct(ctx, p.ID)
			if err != nil {
				return err
			}
			check.Batches += len(batches)

			sum := 0
			for _, b := range batches {
				sum += b.CurrentQuantity
				batchID := b.ID
				if b.CurrentQuantity < 0 || b.CurrentQuantity > b.InitialQuantity {
					check.Issues = append(check.Issues, StockIssue{
						ProductID: p.ID, SKU: p.SKU, BatchID: &batchID,
						Message: fmt.Sprintf("current quantity %d outside [0, %d]", b.CurrentQuantity, b.InitialQuantity),
					})
				}
				if b.Status != b.DerivedStatus() {
					check.Issues = append(check.Issues, StockIssue{
						ProductID: p.ID, SKU: p.SKU, BatchID: &batchID,
						Message: fmt.Sprintf("status %q, expected %q", b.Status, b.DerivedStatus()),
					})
				}
			}
			if sum != p.TotalStock {
				check.Issues = append(check.Issues, StockIssue{
					ProductID: p.ID, SKU: p.SKU,
					Message: fmt.Sprintf("total stock %d, batches hold %d", p.TotalStock, sum),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	check.Balanced = len(check.Issues) == 0
	return check, nil
}
