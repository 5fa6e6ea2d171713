// Package export serializes extracted line items into the delivery formats:
// the vendor-convention ;-delimited CSV, an XLSX workbook, and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ovhbill/internal/domain/invoice"
)

// Delimiter is the record separator of the CSV deliverable.
const Delimiter = ';'

// Timestamp serializes an optional date as Unix seconds, or an empty field
// when the date is absent.
type Timestamp struct {
	t *time.Time
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (ts Timestamp) MarshalCSV() (string, error) {
	if ts.t == nil {
		return "", nil
	}
	return strconv.FormatInt(ts.t.Unix(), 10), nil
}

// MarshalJSON serializes the timestamp as a JSON number, or null when absent.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.t == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ts.t.Unix(), 10)), nil
}

// Record is one output row. Column order matches the vendor pipeline's
// historical CSV schema.
type Record struct {
	Invoice     string          `csv:"invoice" json:"invoice"`
	Section     string          `csv:"section" json:"section"`
	Description string          `csv:"description" json:"description"`
	Reference   string          `csv:"reference" json:"reference"`
	UnitCount   decimal.Decimal `csv:"unit_count" json:"unit_count"`
	UnitPrice   decimal.Decimal `csv:"unit_price" json:"unit_price"`
	Price       decimal.Decimal `csv:"price" json:"price"`
	PeriodStart Timestamp       `csv:"period_start" json:"period_start"`
	PeriodEnd   Timestamp       `csv:"period_end" json:"period_end"`
}

// Records converts line items into output rows.
func Records(items []invoice.LineItem) []Record {
	records := make([]Record, 0, len(items))
	for _, it := range items {
		records = append(records, Record{
			Invoice:     it.Invoice,
			Section:     it.Section,
			Description: it.Description,
			Reference:   it.Reference,
			UnitCount:   it.UnitCount,
			UnitPrice:   it.UnitPrice,
			Price:       it.Price,
			PeriodStart: Timestamp{t: it.PeriodStart},
			PeriodEnd:   Timestamp{t: it.PeriodEnd},
		})
	}
	return records
}

// WriteCSV writes items as a ;-delimited CSV with a header row.
func WriteCSV(w io.Writer, items []invoice.LineItem) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	records := Records(items)
	if err := gocsv.MarshalCSV(&records, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

// WriteJSON writes items as a JSON array.
func WriteJSON(w io.Writer, items []invoice.LineItem) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(items)); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

var xlsxHeader = []interface{}{
	"invoice", "section", "description", "reference",
	"unit_count", "unit_price", "price", "period_start", "period_end",
}

// WriteXLSX writes items as a single-sheet XLSX workbook with the same
// column set as the CSV.
func WriteXLSX(w io.Writer, items []invoice.LineItem) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("write XLSX header: %w", err)
	}

	for i, rec := range Records(items) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("XLSX cell name: %w", err)
		}
		row := []interface{}{
			rec.Invoice, rec.Section, rec.Description, rec.Reference,
			rec.UnitCount.InexactFloat64(),
			rec.UnitPrice.InexactFloat64(),
			rec.Price.InexactFloat64(),
			timestampCell(rec.PeriodStart),
			timestampCell(rec.PeriodEnd),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write XLSX row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write XLSX: %w", err)
	}
	return nil
}

func timestampCell(ts Timestamp) interface{} {
	if ts.t == nil {
		return ""
	}
	return ts.t.Unix()
}
