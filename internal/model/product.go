package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	SKU           string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required,max=50"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category      *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty" validate:"-"`
	SellingPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"selling_price" validate:"gte=0"`
	MinStockLevel int             `gorm:"not null;default:0" json:"min_stock_level" validate:"gte=0"`

	// TotalStock mirrors the sum of CurrentQuantity over the product's batches.
	// Only the ledger services write it, always inside the transaction that
	// changed the batches.
	TotalStock int `gorm:"not null;default:0" json:"total_stock"`

	Batches []Batch `json:"batches,omitempty" validate:"-"`
}

func (p *Product) CategoryRef() CategoryRef {
	if p.Category == nil {
		return CategoryRef{}
	}
	return CategoryRef{ID: p.Category.ID, Name: p.Category.Name}
}

func (p *Product) IsLowStock() bool {
	return p.TotalStock < p.MinStockLevel
}
