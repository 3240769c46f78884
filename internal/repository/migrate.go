package repository

import (
	"go-parts-ledger/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Batch{},
		&model.Sale{},
		&model.MonthlyReport{},
		&model.LedgerState{},
	)
}
