// Package ingest reads marketplace sales exports and reference sheets from xlsx workbooks.
package ingest

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/sales-pivot/internal/common"
)

// Options selects what part of a workbook is read.
type Options struct {
	Sheet string // Sheet to read; empty means the first sheet
}

// sheet is the raw cell grid of one worksheet.
type sheet struct {
	name     string
	header   []string
	rows     [][]string
	date1904 bool
}

// readSheet opens the workbook in r and returns the raw cell values of the selected sheet.
// Cells are read unformatted so numeric barcodes keep their digits and dates arrive as serials.
func readSheet(r io.Reader, opts Options) (*sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", common.ErrIngestion, err)
	}
	defer func() { _ = f.Close() }()

	name := opts.Sheet
	sheets := f.GetSheetList()
	switch {
	case len(sheets) == 0:
		return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrIngestion)
	case name == "":
		name = sheets[0]
	case !slices.Contains(sheets, name):
		return nil, fmt.Errorf("%w: sheet %q not found (available: %s)", common.ErrIngestion, name, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %w", common.ErrIngestion, name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", common.ErrIngestion, name)
	}

	s := &sheet{name: name, header: rows[0], rows: rows[1:]}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		s.date1904 = *props.Date1904
	}
	return s, nil
}

// columns maps each wanted header to its column index. Headers match exactly after trimming
// surrounding whitespace; the first occurrence wins.
func (s *sheet) columns(wanted []string) (map[string]int, []string) {
	index := make(map[string]int, len(wanted))
	for i, cell := range s.header {
		name := strings.TrimSpace(cell)
		if _, dup := index[name]; !dup && slices.Contains(wanted, name) {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range wanted {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return index, missing
}

// cell returns the raw value at col, or "" when the row is shorter.
func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cellName returns the A1 reference of a data row cell; rowIdx counts from the first data row.
func cellName(col, rowIdx int) string {
	name, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
	if err != nil {
		return fmt.Sprintf("row %d", rowIdx+2)
	}
	return name
}
