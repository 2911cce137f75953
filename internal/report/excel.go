// Package report writes computed reporting tables to xlsx workbooks.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// Sheet names, in workbook order. The daily trend is presentation-only and never exported.
const (
	SheetPivot        = "Pivot Table"
	SheetMarketplaces = "Marketplace Comparison"
	SheetTopProducts  = "Top 10 Products"
	SheetCategories   = "Category Comparison"
)

// Sheets lists the exported sheets in order.
var Sheets = []string{SheetPivot, SheetMarketplaces, SheetTopProducts, SheetCategories}

// ExcelWriter exports reporting tables as a multi-sheet workbook.
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates a writer. A nil logger falls back to the default logger.
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{logger: logger}
}

// Write exports tables to path. The workbook is written to a temporary file in the same
// directory and renamed into place, so a failed export never leaves a partial file behind.
func (w *ExcelWriter) Write(ctx context.Context, path string, tables *model.ReportingTables) error {
	if ctx == nil {
		return fmt.Errorf("%w: context cannot be nil", common.ErrExport)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrExport, err)
	}
	if path == "" {
		return fmt.Errorf("%w: output path is empty", common.ErrExport)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", common.ErrExport, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Only present when the rename did not happen.
		_ = os.Remove(tmpPath)
	}()

	if err := w.WriteTo(tmp, tables); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(exportMode(path)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to set permissions on %s: %w", common.ErrExport, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to flush %s: %w", common.ErrExport, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: failed to move export into place: %w", common.ErrExport, err)
	}

	w.logger.Info("exported report",
		"path", path,
		"pivot_rows", len(tables.Pivot),
		"marketplaces", len(tables.Marketplaces),
		"top_products", len(tables.TopProducts),
		"categories", len(tables.Categories))
	return nil
}

// exportMode keeps the permissions of an existing export and defaults to 0644 otherwise.
func exportMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return 0o644
}

// WriteTo encodes tables as an xlsx workbook into out.
func (w *ExcelWriter) WriteTo(out io.Writer, tables *model.ReportingTables) error {
	if tables == nil {
		return fmt.Errorf("%w: no tables to export", common.ErrExport)
	}

	f, err := Build(tables)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("%w: failed to encode workbook: %w", common.ErrExport, err)
	}
	return nil
}

// Build lays out the four exported tables, one per sheet.
func Build(tables *model.ReportingTables) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: failed to create header style: %w", common.ErrExport, err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: failed to create total style: %w", common.ErrExport, err)
	}

	layouts := []sheetLayout{
		pivotLayout(tables.Pivot),
		{
			name:   SheetMarketplaces,
			header: []any{"MarketPlace", "Quantity", "Total Amount"},
			rows:   marketplaceRows(tables.Marketplaces),
			widths: []float64{24, 12, 16},
		},
		{
			name:   SheetTopProducts,
			header: []any{"Barcode", "Product", "Category", "Quantity"},
			rows:   productRows(tables.TopProducts),
			widths: []float64{18, 36, 20, 12},
		},
		{
			name:   SheetCategories,
			header: []any{"Category", "Quantity", "Total Amount"},
			rows:   categoryRows(tables.Categories),
			widths: []float64{24, 12, 16},
		},
	}

	for i, layout := range layouts {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), layout.name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("%w: failed to name sheet %q: %w", common.ErrExport, layout.name, err)
			}
		} else if _, err := f.NewSheet(layout.name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: failed to add sheet %q: %w", common.ErrExport, layout.name, err)
		}

		if err := writeSheet(f, layout.name, layout.header, layout.rows); err != nil {
			_ = f.Close()
			return nil, err
		}

		// Cosmetics; a failure here does not invalidate the data.
		_ = f.SetRowStyle(layout.name, 1, 1, headerStyle)
		for _, row := range layout.totals {
			_ = f.SetRowStyle(layout.name, row+1, row+1, totalStyle)
		}
		for col, width := range layout.widths {
			name, _ := excelize.ColumnNumberToName(col + 1)
			_ = f.SetColWidth(layout.name, name, name, width)
		}
		_ = f.SetPanes(layout.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%w: failed to write %s header: %w", common.ErrExport, sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%w: failed to write %s row %d: %w", common.ErrExport, sheet, i+2, err)
		}
	}
	return nil
}
