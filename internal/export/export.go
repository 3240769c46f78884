// Package export renders monthly report payloads as spreadsheets.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-parts-ledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName is the download name for the report of period.
func (f Format) FileName(period model.Period) string {
	return fmt.Sprintf("monthly-report-%s.%s", period, f)
}

var headings = []string{
	"SKU", "Product", "Category",
	"Starting Qty", "Purchased Qty", "Sold Qty", "Ending Qty",
	"Revenue", "Cost", "Profit", "Margin %", "Inventory Value",
}

// cell is one spreadsheet value; money stays decimal until the writer
// decides how to print it.
type cell interface{}

func lineRow(l model.ProductReportLine) []cell {
	return []cell{
		l.SKU, l.ProductName, l.Category,
		l.StartingQuantity, l.PurchasedQuantity, l.SoldQuantity, l.EndingQuantity,
		l.Revenue, l.Cost, l.Profit, l.ProfitMargin, l.InventoryValue,
	}
}

func totalsRow(t model.ReportTotals) []cell {
	return []cell{
		"TOTAL", "", "",
		t.StartingQuantity, t.PurchasedQuantity, t.SoldQuantity, t.EndingQuantity,
		t.Revenue, t.Cost, t.Profit, t.ProfitMargin, t.InventoryValue,
	}
}

func Render(w io.Writer, data *model.ReportData, format Format) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, data)
	case FormatCSV:
		return writeCSV(w, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func writeXLSX(w io.Writer, data *model.ReportData) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%04d-%02d", data.Year, data.Month)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(headings))
	for i, h := range headings {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	rows := make([][]cell, 0, len(data.Products)+1)
	for _, l := range data.Products {
		rows = append(rows, lineRow(l))
	}
	rows = append(rows, totalsRow(data.Totals))

	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			if d, ok := v.(decimal.Decimal); ok {
				values[j] = d.InexactFloat64()
				continue
			}
			values[j] = v
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &values); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func writeCSV(w io.Writer, data *model.ReportData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headings); err != nil {
		return err
	}

	write := func(row []cell) error {
		record := make([]string, len(row))
		for i, v := range row {
			switch v := v.(type) {
			case decimal.Decimal:
				record[i] = v.StringFixed(2)
			case int:
				record[i] = strconv.Itoa(v)
			default:
				record[i] = fmt.Sprint(v)
			}
		}
		return cw.Write(record)
	}

	for _, l := range data.Products {
		if err := write(lineRow(l)); err != nil {
			return err
		}
	}
	if err := write(totalsRow(data.Totals)); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
