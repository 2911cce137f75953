package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrInvalidEntry   = errors.New("invalid category entry")
	ErrDuplicateEntry = errors.New("duplicate barcode")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntries checks every entry has a barcode and category and that barcodes are unique.
func validateEntries(entries []model.CategoryEntry) error {
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		if entry.Barcode == "" {
			return fmt.Errorf("%w at index %d: missing barcode", ErrInvalidEntry, i)
		}
		if strings.TrimSpace(entry.Category) == "" {
			return fmt.Errorf("%w at index %d: missing category for barcode %q", ErrInvalidEntry, i, entry.Barcode)
		}
		if prev, ok := seen[entry.Barcode]; ok {
			return fmt.Errorf("%w: %q at index %d and %d", ErrDuplicateEntry, entry.Barcode, prev, i)
		}
		seen[entry.Barcode] = i
	}
	return nil
}
