package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"go-parts-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *model.ReportData {
	d := decimal.RequireFromString
	return &model.ReportData{
		Year:  2025,
		Month: 1,
		Products: []model.ProductReportLine{{
			ProductID:         uuid.New(),
			ProductName:       "Oil filter",
			SKU:               "FLT-01",
			Category:          "Filters",
			StartingQuantity:  0,
			PurchasedQuantity: 15,
			SoldQuantity:      12,
			EndingQuantity:    3,
			Revenue:           d("60"),
			Cost:              d("38"),
			Profit:            d("22"),
			ProfitMargin:      d("36.67"),
			InventoryValue:    d("12"),
		}},
		Totals: model.ReportTotals{
			PurchasedQuantity: 15,
			SoldQuantity:      12,
			EndingQuantity:    3,
			Revenue:           d("60"),
			Cost:              d("38"),
			Profit:            d("22"),
			ProfitMargin:      d("36.67"),
			InventoryValue:    d("12"),
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Equal(t, "monthly-report-2025-01.csv", FormatCSV.FileName(model.Period{Year: 2025, Month: time.January}))
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, headings, records[0])
	assert.Equal(t, []string{"FLT-01", "Oil filter", "Filters", "0", "15", "12", "3",
		"60.00", "38.00", "22.00", "36.67", "12.00"}, records[1])
	assert.Equal(t, "TOTAL", records[2][0])
}

func TestRenderXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("2025-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SKU", rows[0][0])
	assert.Equal(t, "FLT-01", rows[1][0])
	assert.Equal(t, "15", rows[1][4])
	assert.Equal(t, "TOTAL", rows[2][0])
}
