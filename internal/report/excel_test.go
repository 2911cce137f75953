package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/pipeline"
	"github.com/Veraticus/sales-pivot/internal/testutil"
)

func exampleTables(t *testing.T) *model.ReportingTables {
	t.Helper()

	opts := pipeline.DefaultOptions()
	opts.SubtotalDepth = 1
	tables, err := pipeline.Run(
		testutil.ExampleRecords(),
		model.NewCategoryLookup(testutil.ReferenceEntries()),
		model.FilterCriteria{Range: testutil.Range("2024-07-01", "2024-07-31")},
		opts,
	)
	require.NoError(t, err)
	return tables
}

func TestExcelWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pivot_table.xlsx")
	writer := NewExcelWriter(nil)

	require.NoError(t, writer.Write(context.Background(), path, exampleTables(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, Sheets, f.GetSheetList())
	assert.NotContains(t, f.GetSheetList(), "Daily Trend")

	pivot, err := f.GetRows(SheetPivot)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"MarketPlace", "Barcode", "Product", "Price", "Category", "Quantity", "Total Amount"},
		{"MarketA", "0001", "Widget", "5", "Tools", "2", "10"},
		{"MarketA", "Total", "", "", "", "2", "10"},
		{"MarketB", "0002", "Gadget", "10", "Electronics", "3", "30"},
		{"MarketB", "Total", "", "", "", "3", "30"},
		{"Total", "", "", "", "", "5", "40"},
	}, pivot)

	marketplaces, err := f.GetRows(SheetMarketplaces)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"MarketPlace", "Quantity", "Total Amount"},
		{"MarketA", "2", "10"},
		{"MarketB", "3", "30"},
	}, marketplaces)

	top, err := f.GetRows(SheetTopProducts)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Barcode", "Product", "Category", "Quantity"},
		{"0002", "Gadget", "Electronics", "3"},
		{"0001", "Widget", "Tools", "2"},
	}, top)

	categories, err := f.GetRows(SheetCategories)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Category", "Quantity", "Total Amount"},
		{"Electronics", "3", "30"},
		{"Tools", "2", "10"},
	}, categories)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExcelWriter_WriteEmptyTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	tables, err := pipeline.Run(testutil.ExampleRecords(), nil,
		model.FilterCriteria{Range: testutil.Range("2023-01-01", "2023-01-31")}, pipeline.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, NewExcelWriter(nil).Write(context.Background(), path, tables))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, Sheets, f.GetSheetList())
	rows, err := f.GetRows(SheetTopProducts)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestExcelWriter_FileMode(t *testing.T) {
	tests := []struct {
		existing *os.FileMode
		name     string
		want     os.FileMode
	}{
		{name: "new file is world readable", want: 0o644},
		{name: "keeps mode of replaced file", existing: modePtr(0o644), want: 0o644},
		{name: "keeps restricted mode", existing: modePtr(0o600), want: 0o600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pivot_table.xlsx")
			if tt.existing != nil {
				require.NoError(t, os.WriteFile(path, []byte("old"), *tt.existing))
				require.NoError(t, os.Chmod(path, *tt.existing))
			}

			require.NoError(t, NewExcelWriter(nil).Write(context.Background(), path, exampleTables(t)))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
		})
	}
}

func modePtr(mode os.FileMode) *os.FileMode {
	return &mode
}

func TestExcelWriter_Failures(t *testing.T) {
	tables := exampleTables(t)
	dir := t.TempDir()

	tests := []struct {
		ctx    context.Context
		tables *model.ReportingTables
		name   string
		path   string
	}{
		{name: "missing directory", ctx: context.Background(), path: filepath.Join(dir, "nope", "out.xlsx"), tables: tables},
		{name: "empty path", ctx: context.Background(), path: "", tables: tables},
		{name: "nil tables", ctx: context.Background(), path: filepath.Join(dir, "nil.xlsx"), tables: nil},
		{name: "cancelled context", ctx: cancelledContext(), path: filepath.Join(dir, "cancelled.xlsx"), tables: tables},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExcelWriter(nil).Write(tt.ctx, tt.path, tt.tables)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrExport)
			if tt.path != "" {
				_, statErr := os.Stat(tt.path)
				assert.True(t, os.IsNotExist(statErr), "no partial file left behind")
			}
		})
	}
}

func TestExcelWriter_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelWriter(nil).WriteTo(&buf, exampleTables(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, Sheets, f.GetSheetList())
}

func TestPivotCells(t *testing.T) {
	key := model.PivotKey{Marketplace: "MarketA", Barcode: "0001", Product: "Widget", Price: 5, Category: "Tools"}

	tests := []struct {
		name string
		row  model.PivotRow
		want []any
	}{
		{
			name: "detail",
			row:  model.PivotRow{Key: key, Depth: model.PivotKeyDepth, Quantity: 2, TotalAmount: 10},
			want: []any{"MarketA", "0001", "Widget", 5.0, "Tools", 2.0, 10.0},
		},
		{
			name: "price subtotal",
			row:  model.PivotRow{Key: model.PivotKey{Marketplace: "MarketA", Barcode: "0001", Product: "Widget", Price: 5}, Depth: 4, Quantity: 2, TotalAmount: 10},
			want: []any{"MarketA", "0001", "Widget", 5.0, model.TotalLabel, 2.0, 10.0},
		},
		{
			name: "barcode subtotal",
			row:  model.PivotRow{Key: model.PivotKey{Marketplace: "MarketA", Barcode: "0001"}, Depth: 2, Quantity: 2, TotalAmount: 10},
			want: []any{"MarketA", "0001", model.TotalLabel, "", "", 2.0, 10.0},
		},
		{
			name: "grand total",
			row:  model.PivotRow{Depth: 0, Quantity: 5, TotalAmount: 40},
			want: []any{model.TotalLabel, "", "", "", "", 5.0, 40.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PivotCells(tt.row))
		})
	}
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
