package service

import (
	"errors"
	"fmt"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/pkg/validator"

	"github.com/google/uuid"
)

var (
	// validation
	ErrValidation      = errors.New("validation failed")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidPeriod   = model.ErrInvalidPeriod

	// lookups
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrTransactionNotFound = errors.New("sale transaction not found")
	ErrDuplicateSKU        = errors.New("SKU already exists")
	ErrDuplicateCategory   = errors.New("category already exists")

	// business rules
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrConcurrentStockConflict = errors.New("stock changed concurrently, retries exhausted")
	ErrAlreadyFinalized        = errors.New("period already finalized")
	ErrNotCurrentPeriod        = errors.New("period is not the open period")
	ErrPeriodClosed            = errors.New("period is closed for postings")
	ErrPeriodLocked            = errors.New("period is being finalized")

	// infrastructure
	ErrLedgerNotInitialized = errors.New("ledger state not initialized")
	ErrTransactionFailed    = errors.New("transaction failed")
)

// InsufficientStockError reports how much of a product could be sold.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type ValidationError struct {
	Fields []*validator.ErrorResponse
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, validator.Summary(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validate(v any) error {
	if errs := validator.ValidateStruct(v); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

var clientErrors = []error{
	ErrValidation,
	ErrInvalidQuantity,
	ErrInvalidPrice,
	ErrInvalidPeriod,
	ErrProductNotFound,
	ErrCategoryNotFound,
	ErrReportNotFound,
	ErrTransactionNotFound,
	ErrDuplicateSKU,
	ErrDuplicateCategory,
	ErrInsufficientStock,
	ErrAlreadyFinalized,
	ErrNotCurrentPeriod,
	ErrPeriodClosed,
}

// IsClientError reports whether err was caused by the request rather than by
// the system.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the same request may succeed if sent again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentStockConflict) ||
		errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrTransactionFailed)
}

// classify passes typed errors through and wraps anything else as a
// transaction failure.
func classify(err error) error {
	if err == nil || IsClientError(err) || IsRetryable(err) || errors.Is(err, ErrLedgerNotInitialized) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
}
