package service

import (
	"sort"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportInput is the history a month's report is computed from.
type ReportInput struct {
	Period   model.Period
	Products []model.Product
	// Batches purchased before the end of Period.
	Batches []model.Batch
	// Sales dated before the end of Period.
	Sales []model.Sale
	// Previous is the finalized report of the month before Period, if any.
	// Its ending quantities become this month's starting quantities.
	Previous *model.ReportData
}

type productTally struct {
	purchasedBeforeStart int
	soldBeforeStart      int
	purchased            int
	sold                 int
	revenue              decimal.Decimal
	cost                 decimal.Decimal
	inventoryValue       decimal.Decimal
	hasBatches           bool
}

// BuildReport aggregates the month's activity per product. It reads nothing
// but its input, so rebuilding from the same history yields the same data.
// Products with no batch purchased before the month's end are left out.
// Inventory is valued FIFO: each batch's units still on hand at month end at
// that batch's purchase price.
func BuildReport(in ReportInput) *model.ReportData {
	start, end := in.Period.Start(), in.Period.End()

	tallies := make(map[uuid.UUID]*productTally, len(in.Products))
	tally := func(id uuid.UUID) *productTally {
		t, ok := tallies[id]
		if !ok {
			t = &productTally{revenue: decimal.Zero, cost: decimal.Zero, inventoryValue: decimal.Zero}
			tallies[id] = t
		}
		return t
	}

	soldFromBatch := make(map[uuid.UUID]int)
	for i := range in.Sales {
		sale := &in.Sales[i]
		if !sale.SaleDate.Before(end) {
			continue
		}
		soldFromBatch[sale.BatchID] += sale.Quantity

		t := tally(sale.ProductID)
		if sale.SaleDate.Before(start) {
			t.soldBeforeStart += sale.Quantity
			continue
		}
		t.sold += sale.Quantity
		t.revenue = t.revenue.Add(sale.Revenue())
		t.cost = t.cost.Add(sale.Cost())
	}

	for i := range in.Batches {
		batch := &in.Batches[i]
		if !batch.PurchaseDate.Before(end) {
			continue
		}
		t := tally(batch.ProductID)
		t.hasBatches = true
		if batch.PurchaseDate.Before(start) {
			t.purchasedBeforeStart += batch.InitialQuantity
		} else {
			t.purchased += batch.InitialQuantity
		}

		onHand := batch.InitialQuantity - soldFromBatch[batch.ID]
		t.inventoryValue = t.inventoryValue.Add(batch.PurchasePrice.Mul(decimal.NewFromInt(int64(onHand))))
	}

	data := &model.ReportData{
		Year:     in.Period.Year,
		Month:    int(in.Period.Month),
		Products: []model.ProductReportLine{},
		Totals: model.ReportTotals{
			Revenue:        decimal.Zero,
			Cost:           decimal.Zero,
			Profit:         decimal.Zero,
			ProfitMargin:   decimal.Zero,
			InventoryValue: decimal.Zero,
		},
	}

	for _, product := range in.Products {
		t, ok := tallies[product.ID]
		if !ok || !t.hasBatches {
			continue
		}

		starting := t.purchasedBeforeStart - t.soldBeforeStart
		if in.Previous != nil {
			if prev, ok := in.Previous.Line(product.ID); ok {
				starting = prev.EndingQuantity
			}
		}

		profit := t.revenue.Sub(t.cost)
		line := model.ProductReportLine{
			ProductID:         product.ID,
			ProductName:       product.Name,
			SKU:               product.SKU,
			Category:          product.CategoryRef().Name,
			StartingQuantity:  starting,
			PurchasedQuantity: t.purchased,
			SoldQuantity:      t.sold,
			EndingQuantity:    starting + t.purchased - t.sold,
			Revenue:           t.revenue.Round(2),
			Cost:              t.cost.Round(2),
			Profit:            profit.Round(2),
			ProfitMargin:      model.MarginPercent(profit, t.revenue),
			InventoryValue:    t.inventoryValue.Round(2),
		}
		data.Products = append(data.Products, line)

		tot := &data.Totals
		tot.StartingQuantity += line.StartingQuantity
		tot.PurchasedQuantity += line.PurchasedQuantity
		tot.SoldQuantity += line.SoldQuantity
		tot.EndingQuantity += line.EndingQuantity
		tot.Revenue = tot.Revenue.Add(line.Revenue)
		tot.Cost = tot.Cost.Add(line.Cost)
		tot.Profit = tot.Profit.Add(line.Profit)
		tot.InventoryValue = tot.InventoryValue.Add(line.InventoryValue)
	}

	sort.Slice(data.Products, func(i, j int) bool {
		return data.Products[i].SKU < data.Products[j].SKU
	})
	// Weighted by revenue, not a mean of per-product margins.
	data.Totals.ProfitMargin = model.MarginPercent(data.Totals.Profit, data.Totals.Revenue)
	return data
}
