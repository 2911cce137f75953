package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// Reference sheet column headers.
const (
	ColRefBarcode  = "Barcode"
	ColRefCategory = "Category"
)

// ParseReferenceFile reads a reference sheet from path.
func ParseReferenceFile(path string, opts Options) ([]model.CategoryEntry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIngestion, err)
	}
	defer func() { _ = f.Close() }()

	return ParseReferenceSheet(f, opts)
}

// ParseReferenceSheet reads barcode to category entries.
//
// The sheet carries Barcode and Category columns; a sheet headed "A" and "B" is read as
// barcode and category respectively. Rows with a blank barcode or category are skipped.
// When a barcode repeats, its last category wins and the entry keeps its first position.
func ParseReferenceSheet(r io.Reader, opts Options) ([]model.CategoryEntry, error) {
	s, err := readSheet(r, opts)
	if err != nil {
		return nil, err
	}

	barcodeCol, categoryCol, err := referenceColumns(s)
	if err != nil {
		return nil, err
	}

	entries := make([]model.CategoryEntry, 0, len(s.rows))
	position := make(map[string]int, len(s.rows))
	skipped := 0
	for _, row := range s.rows {
		barcode := cell(row, barcodeCol)
		category := strings.TrimSpace(cell(row, categoryCol))
		if strings.TrimSpace(barcode) == "" || category == "" {
			skipped++
			continue
		}

		if i, ok := position[barcode]; ok {
			entries[i].Category = category
			continue
		}
		position[barcode] = len(entries)
		entries = append(entries, model.CategoryEntry{Barcode: barcode, Category: category})
	}

	slog.Debug("parsed reference sheet",
		"sheet", s.name,
		"entries", len(entries),
		"skipped", skipped)

	return entries, nil
}

func referenceColumns(s *sheet) (int, int, error) {
	cols, missing := s.columns([]string{ColRefBarcode, ColRefCategory})
	if len(missing) == 0 {
		return cols[ColRefBarcode], cols[ColRefCategory], nil
	}

	legacy, legacyMissing := s.columns([]string{"A", "B"})
	if len(legacyMissing) == 0 {
		return legacy["A"], legacy["B"], nil
	}

	return 0, 0, fmt.Errorf("%w: sheet %q is missing reference columns: %s",
		common.ErrIngestion, s.name, strings.Join(missing, ", "))
}
