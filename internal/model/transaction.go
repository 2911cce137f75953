// Package model defines the core domain models used throughout the application.
package model

import "time"

// DefaultCancelledStatus is the order status excluded from every report.
const DefaultCancelledStatus = "CANCELLED"

// TransactionRecord represents a single sales line from a marketplace export.
type TransactionRecord struct {
	OrderDate   *time.Time // nil when the source value could not be parsed
	Marketplace string
	Status      string
	Barcode     string // Opaque identifier, never interpreted as a number
	Product     string
	Quantity    float64
	Amount      float64
	Discount    float64
	Price       float64 // Unit price
	VatAmount   float64
}

// HasOrderDate reports whether the record carries a parsed order date.
func (t *TransactionRecord) HasOrderDate() bool {
	return t.OrderDate != nil
}

// EnrichedRecord is a transaction joined with its product category.
type EnrichedRecord struct {
	Category string
	TransactionRecord
}

// FilteredRecord is an enriched record that passed the report filters.
type FilteredRecord struct {
	OrderDate time.Time
	EnrichedRecord
	LineTotal float64 // Quantity * Price
}

// Enriched returns the enriched record the filtered record was derived from.
func (f *FilteredRecord) Enriched() EnrichedRecord {
	return f.EnrichedRecord
}

// Day returns the order date truncated to the calendar day.
func (f *FilteredRecord) Day() time.Time {
	y, m, d := f.OrderDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, f.OrderDate.Location())
}
