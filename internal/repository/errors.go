package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrInsufficientBatchQuantity is returned by a batch decrement when the
	// batch no longer holds the requested amount at write time.
	ErrInsufficientBatchQuantity = errors.New("insufficient batch quantity")

	// ErrBatchVersionConflict is returned by a batch decrement when the batch
	// changed since it was read.
	ErrBatchVersionConflict = errors.New("batch modified concurrently")

	// ErrReportFinalized is returned when writing to a finalized report.
	ErrReportFinalized = errors.New("report is finalized")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
