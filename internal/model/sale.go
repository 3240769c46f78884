package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sale is the part of a sale served from a single batch. All rows written by
// one sale request share TransactionID. Rows are never updated.
type Sale struct {
	BaseModel
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product       *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BatchID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch         *Batch          `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	SalePrice     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"sale_price"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"purchase_price"`
	Profit        decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"profit"`
	ProfitMargin  decimal.Decimal `gorm:"type:numeric(22,2);not null" json:"profit_margin"`
	SaleDate      time.Time       `gorm:"not null;index" json:"sale_date"`
	CustomerID    *string         `gorm:"type:varchar(100)" json:"customer_id,omitempty"`
	InvoiceNumber *string         `gorm:"type:varchar(100)" json:"invoice_number,omitempty"`
}

func (s *Sale) Revenue() decimal.Decimal {
	return s.SalePrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

func (s *Sale) Cost() decimal.Decimal {
	return s.PurchasePrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// ComputeProfit fills Profit and ProfitMargin from quantity and unit prices.
func (s *Sale) ComputeProfit() {
	s.Profit = s.Revenue().Sub(s.Cost())
	s.ProfitMargin = MarginPercent(s.Profit, s.Revenue())
}

// MarginPercent returns profit/revenue as a percentage rounded to two places,
// or zero when there is no revenue.
func MarginPercent(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(2)
}
