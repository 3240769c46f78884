package service

import (
	"sort"
	"time"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation is the part of a sale served from one batch.
type Allocation struct {
	Batch    model.Batch
	Quantity int
	UnitCost decimal.Decimal
}

// Allocate plans a sale of quantity units against batches, consuming the
// oldest purchase first. Only batches received on or before saleDate are
// eligible. The plan covers the whole quantity or Allocate fails with an
// *InsufficientStockError; it never returns a partial plan.
func Allocate(productID uuid.UUID, batches []model.Batch, quantity int, saleDate time.Time) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	eligible := make([]model.Batch, 0, len(batches))
	available := 0
	for _, b := range batches {
		if b.ProductID != productID || b.CurrentQuantity <= 0 || b.PurchaseDate.After(saleDate) {
			continue
		}
		eligible = append(eligible, b)
		available += b.CurrentQuantity
	}

	if available < quantity {
		return nil, &InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
	}

	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].PurchasedBefore(&eligible[j]) })

	plan := make([]Allocation, 0, len(eligible))
	remaining := quantity
	for _, b := range eligible {
		if remaining == 0 {
			break
		}
		take := min(remaining, b.CurrentQuantity)
		plan = append(plan, Allocation{Batch: b, Quantity: take, UnitCost: b.PurchasePrice})
		remaining -= take
	}
	return plan, nil
}
