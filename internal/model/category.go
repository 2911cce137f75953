package model

import "time"

// UnknownCategory marks records whose barcode has no reference entry.
const UnknownCategory = "Unknown"

// CategoryEntry maps a product barcode to its category.
type CategoryEntry struct {
	Barcode  string
	Category string
}

// CategoryLookup is an in-memory snapshot of the reference store.
type CategoryLookup map[string]string

// NewCategoryLookup builds a lookup from reference entries. Later entries win on duplicate barcodes.
func NewCategoryLookup(entries []CategoryEntry) CategoryLookup {
	lookup := make(CategoryLookup, len(entries))
	for _, e := range entries {
		lookup[e.Barcode] = e.Category
	}
	return lookup
}

// Category returns the category for a barcode, or UnknownCategory when absent.
func (l CategoryLookup) Category(barcode string) (string, bool) {
	category, ok := l[barcode]
	if !ok {
		return UnknownCategory, false
	}
	return category, true
}

// ReferenceLoad records one rebuild of the reference store.
type ReferenceLoad struct {
	LoadedAt   time.Time `json:"loadedAt"`
	Source     string    `json:"source"`
	EntryCount int       `json:"entryCount"`
}
