package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// Sales export column headers.
const (
	ColMarketplace = "MarketPlace"
	ColOrderDate   = "Order Date"
	ColStatus      = "Status"
	ColBarcode     = "Barcode"
	ColProduct     = "Product"
	ColQuantity    = "Quantity"
	ColAmount      = "Amount"
	ColDiscount    = "Discount"
	ColPrice       = "Price"
	ColVatAmount   = "Vat Amount"
)

// OrderDateLayout is the textual order date format of marketplace exports.
const OrderDateLayout = "2006-01-02 15:04:05"

// RequiredColumns lists the headers a sales export must carry. Other columns are ignored.
var RequiredColumns = []string{
	ColMarketplace, ColOrderDate, ColStatus, ColBarcode, ColProduct,
	ColQuantity, ColAmount, ColDiscount, ColPrice, ColVatAmount,
}

var dateLayouts = []string{OrderDateLayout, "2006-01-02T15:04:05", model.DateLayout}

// ParseSalesFile reads a sales export from path.
func ParseSalesFile(path string, opts Options) ([]model.TransactionRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIngestion, err)
	}
	defer func() { _ = f.Close() }()

	return ParseSalesExport(f, opts)
}

// ParseSalesExport reads every sales line of the selected sheet.
//
// Barcodes are kept as the raw cell text. Order dates that match neither the export layout
// nor an Excel date serial become nil rather than failing the import. Numeric columns are
// coerced to float64: a blank cell counts as 0 and anything unparsable is an ErrIngestion
// naming the cell. Fully blank rows are skipped.
func ParseSalesExport(r io.Reader, opts Options) ([]model.TransactionRecord, error) {
	s, err := readSheet(r, opts)
	if err != nil {
		return nil, err
	}

	cols, missing := s.columns(RequiredColumns)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: sheet %q is missing required columns: %s",
			common.ErrIngestion, s.name, strings.Join(missing, ", "))
	}

	records := make([]model.TransactionRecord, 0, len(s.rows))
	undated := 0
	for i, row := range s.rows {
		if blankRow(row) {
			continue
		}

		record := model.TransactionRecord{
			Marketplace: cell(row, cols[ColMarketplace]),
			Status:      cell(row, cols[ColStatus]),
			Barcode:     cell(row, cols[ColBarcode]),
			Product:     cell(row, cols[ColProduct]),
			OrderDate:   parseOrderDate(cell(row, cols[ColOrderDate]), s.date1904),
		}
		if record.OrderDate == nil {
			undated++
		}

		numeric := []struct {
			dst *float64
			col string
		}{
			{&record.Quantity, ColQuantity},
			{&record.Amount, ColAmount},
			{&record.Discount, ColDiscount},
			{&record.Price, ColPrice},
			{&record.VatAmount, ColVatAmount},
		}
		for _, n := range numeric {
			v, err := parseNumber(cell(row, cols[n.col]))
			if err != nil {
				return nil, fmt.Errorf("%w: %s column %q at %s: %w",
					common.ErrIngestion, s.name, n.col, cellName(cols[n.col], i), err)
			}
			*n.dst = v
		}

		records = append(records, record)
	}

	slog.Debug("parsed sales export",
		"sheet", s.name,
		"records", len(records),
		"undated", undated)

	return records, nil
}

func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	// ParseFloat also takes hex floats, NaN and Inf, none of which are quantities or prices.
	if strings.ContainsAny(raw, "xX") {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return v, nil
}

// parseOrderDate accepts the textual export layouts or an Excel date serial.
func parseOrderDate(raw string, date1904 bool) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return nil
	}
	// Serials carry fractional-second noise; orders are recorded to the second.
	t = t.Round(time.Second)
	return &t
}
