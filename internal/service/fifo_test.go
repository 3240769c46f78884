package service

import (
	"errors"
	"testing"
	"time"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fifoBatch(productID uuid.UUID, seq int64, at time.Time, qty int, cost string) model.Batch {
	b := model.Batch{
		ProductID:       productID,
		Seq:             seq,
		PurchaseDate:    at,
		PurchasePrice:   dec(cost),
		InitialQuantity: qty,
		CurrentQuantity: qty,
		Status:          model.BatchActive,
	}
	b.ID = uuid.New()
	return b
}

func TestAllocateOldestFirst(t *testing.T) {
	pid := uuid.New()
	b1 := fifoBatch(pid, 1, day(2025, 1, 1), 5, "3")
	b2 := fifoBatch(pid, 2, day(2025, 1, 10), 5, "4")

	// input order must not matter
	plan, err := Allocate(pid, []model.Batch{b2, b1}, 7, day(2025, 1, 20))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, b1.ID, plan[0].Batch.ID)
	assert.Equal(t, 5, plan[0].Quantity)
	assertDecimal(t, "3", plan[0].UnitCost)

	assert.Equal(t, b2.ID, plan[1].Batch.ID)
	assert.Equal(t, 2, plan[1].Quantity)
	assertDecimal(t, "4", plan[1].UnitCost)
}

func TestAllocateTieBreaksOnInsertionOrder(t *testing.T) {
	pid := uuid.New()
	same := day(2025, 1, 1)
	later := fifoBatch(pid, 9, same, 3, "2")
	earlier := fifoBatch(pid, 4, same, 3, "1")

	plan, err := Allocate(pid, []model.Batch{later, earlier}, 4, day(2025, 1, 2))
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, earlier.ID, plan[0].Batch.ID)
	assert.Equal(t, 3, plan[0].Quantity)
	assert.Equal(t, later.ID, plan[1].Batch.ID)
	assert.Equal(t, 1, plan[1].Quantity)
}

func TestAllocateStopsWhenSatisfied(t *testing.T) {
	pid := uuid.New()
	b1 := fifoBatch(pid, 1, day(2025, 1, 1), 5, "3")
	b2 := fifoBatch(pid, 2, day(2025, 1, 2), 5, "3")

	plan, err := Allocate(pid, []model.Batch{b1, b2}, 5, day(2025, 1, 3))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, b1.ID, plan[0].Batch.ID)
}

func TestAllocateInsufficientStock(t *testing.T) {
	pid := uuid.New()
	b1 := fifoBatch(pid, 1, day(2025, 1, 1), 5, "3")
	b2 := fifoBatch(pid, 2, day(2025, 1, 2), 2, "3")

	plan, err := Allocate(pid, []model.Batch{b1, b2}, 8, day(2025, 1, 3))
	assert.Nil(t, plan)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, pid, stockErr.ProductID)
	assert.Equal(t, 8, stockErr.Requested)
	assert.Equal(t, 7, stockErr.Available)
}

func TestAllocateSkipsBatchesReceivedAfterSale(t *testing.T) {
	pid := uuid.New()
	received := fifoBatch(pid, 1, day(2025, 1, 1), 2, "3")
	future := fifoBatch(pid, 2, day(2025, 1, 20), 5, "3")

	_, err := Allocate(pid, []model.Batch{received, future}, 3, day(2025, 1, 10))
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
}

func TestAllocateIgnoresEmptyAndForeignBatches(t *testing.T) {
	pid := uuid.New()
	empty := fifoBatch(pid, 1, day(2025, 1, 1), 5, "3")
	empty.CurrentQuantity = 0
	foreign := fifoBatch(uuid.New(), 2, day(2025, 1, 1), 5, "3")
	good := fifoBatch(pid, 3, day(2025, 1, 2), 5, "3")

	plan, err := Allocate(pid, []model.Batch{empty, foreign, good}, 2, day(2025, 1, 3))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, good.ID, plan[0].Batch.ID)
}

func TestAllocateRejectsNonPositiveQuantity(t *testing.T) {
	_, err := Allocate(uuid.New(), nil, 0, day(2025, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
