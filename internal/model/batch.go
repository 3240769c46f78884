package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchActive   BatchStatus = "active"
	BatchDepleted BatchStatus = "depleted"
)

// Batch is one purchase lot of a product. InitialQuantity never changes after
// creation and CurrentQuantity only ever goes down.
type Batch struct {
	BaseModel
	// Seq is the insertion order, used to break ties on equal purchase dates.
	Seq             int64           `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_fifo,priority:1" json:"product_id"`
	Product         *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PurchaseDate    time.Time       `gorm:"not null;index:idx_batches_fifo,priority:2" json:"purchase_date"`
	PurchasePrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"purchase_price"`
	InitialQuantity int             `gorm:"not null" json:"initial_quantity"`
	CurrentQuantity int             `gorm:"not null" json:"current_quantity"`
	Status          BatchStatus     `gorm:"type:varchar(10);not null" json:"status"`
	Supplier        string          `gorm:"type:varchar(255)" json:"supplier"`
	InvoiceNumber   string          `gorm:"type:varchar(100)" json:"invoice_number"`

	// Version is bumped on every decrement; writers compare it to detect a
	// concurrent change since their read.
	Version int64 `gorm:"not null;default:0" json:"-"`
}

// DerivedStatus is the status implied by the current quantity.
func (b *Batch) DerivedStatus() BatchStatus {
	if b.CurrentQuantity == 0 {
		return BatchDepleted
	}
	return BatchActive
}

// PurchasedBefore orders batches oldest first, insertion order on ties.
func (b *Batch) PurchasedBefore(other *Batch) bool {
	if !b.PurchaseDate.Equal(other.PurchaseDate) {
		return b.PurchaseDate.Before(other.PurchaseDate)
	}
	return b.Seq < other.Seq
}
