package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyReport is the stored snapshot of one month. While IsFinalized is
// false it is a draft and may be rebuilt; once finalized the row is frozen.
type MonthlyReport struct {
	BaseModel
	Year                int             `gorm:"not null;uniqueIndex:idx_monthly_reports_period,priority:1" json:"year"`
	Month               int             `gorm:"not null;uniqueIndex:idx_monthly_reports_period,priority:2" json:"month"`
	TotalSales          decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_sales"`
	TotalProfit         decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_profit"`
	AverageProfitMargin decimal.Decimal `gorm:"type:numeric(22,2);not null" json:"average_profit_margin"`
	IsFinalized         bool            `gorm:"not null;default:false" json:"is_finalized"`
	FinalizedAt         *time.Time      `json:"finalized_at,omitempty"`
	GeneratedAt         time.Time       `gorm:"not null" json:"generated_at"`
	ReportData          string          `gorm:"type:text;not null" json:"report_data"`
}

func (r *MonthlyReport) Period() Period {
	return Period{Year: r.Year, Month: time.Month(r.Month)}
}

// Data decodes ReportData.
func (r *MonthlyReport) Data() (*ReportData, error) {
	var data ReportData
	if err := json.Unmarshal([]byte(r.ReportData), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ReportData is the persisted payload consumed by the report and export views.
// Field names are part of the export contract.
type ReportData struct {
	Year     int                 `json:"year"`
	Month    int                 `json:"month"`
	Products []ProductReportLine `json:"products"`
	Totals   ReportTotals        `json:"totals"`
}

type ProductReportLine struct {
	ProductID         uuid.UUID       `json:"productId"`
	ProductName       string          `json:"productName"`
	SKU               string          `json:"sku"`
	Category          string          `json:"category"`
	StartingQuantity  int             `json:"startingQuantity"`
	EndingQuantity    int             `json:"endingQuantity"`
	PurchasedQuantity int             `json:"purchasedQuantity"`
	SoldQuantity      int             `json:"soldQuantity"`
	Revenue           decimal.Decimal `json:"revenue"`
	Cost              decimal.Decimal `json:"cost"`
	Profit            decimal.Decimal `json:"profit"`
	ProfitMargin      decimal.Decimal `json:"profitMargin"`
	InventoryValue    decimal.Decimal `json:"inventoryValue"`
}

type ReportTotals struct {
	StartingQuantity  int             `json:"startingQuantity"`
	EndingQuantity    int             `json:"endingQuantity"`
	PurchasedQuantity int             `json:"purchasedQuantity"`
	SoldQuantity      int             `json:"soldQuantity"`
	Revenue           decimal.Decimal `json:"revenue"`
	Cost              decimal.Decimal `json:"cost"`
	Profit            decimal.Decimal `json:"profit"`
	ProfitMargin      decimal.Decimal `json:"profitMargin"`
	InventoryValue    decimal.Decimal `json:"inventoryValue"`
}

// Line returns the line for productID, if present.
func (d *ReportData) Line(productID uuid.UUID) (ProductReportLine, bool) {
	for _, line := range d.Products {
		if line.ProductID == productID {
			return line, true
		}
	}
	return ProductReportLine{}, false
}
