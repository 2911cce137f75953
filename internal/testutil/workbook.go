package testutil

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SalesHeader returns the column header of a marketplace sales export.
func SalesHeader() []any {
	return []any{"MarketPlace", "Order Date", "Status", "Barcode", "Product", "Quantity", "Amount", "Discount", "Price", "Vat Amount"}
}

// Workbook writes header and rows to the first sheet of a new workbook and returns the
// encoded xlsx bytes.
func Workbook(t *testing.T, header []any, rows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for i, row := range rows {
		row := row
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			t.Fatalf("failed to write row %d: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to encode workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

// ExampleSalesRows returns the worked example as spreadsheet rows, barcodes as text.
func ExampleSalesRows() [][]any {
	return [][]any{
		{"MarketA", "2024-07-01 10:00:00", "COMPLETE", "0001", "Widget", 2, 10, 0, 5, 1.8},
		{"MarketA", "2024-07-02 11:30:00", "CANCELLED", "0001", "Widget", 1, 5, 0, 5, 0.9},
		{"MarketB", "2024-07-01 09:15:00", "COMPLETE", "0002", "Gadget", 3, 30, 0, 10, 5.4},
	}
}
