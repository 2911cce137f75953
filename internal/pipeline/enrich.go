// Package pipeline turns raw sales lines into the fixed set of reporting tables.
//
// The stages run strictly forward: Enrich joins each line with its category, Filter applies
// the date, marketplace and status predicates and derives the line total, and Aggregate
// computes the tables from one shared filtered slice. Every stage is a pure function that
// allocates its own output.
package pipeline

import "github.com/Veraticus/sales-pivot/internal/model"

// Enrich left-joins records against the category lookup by exact barcode.
// Every input record yields exactly one output record, in input order; records without a
// reference entry get model.UnknownCategory.
func Enrich(records []model.TransactionRecord, lookup model.CategoryLookup) []model.EnrichedRecord {
	enriched := make([]model.EnrichedRecord, len(records))
	for i, record := range records {
		category, _ := lookup.Category(record.Barcode)
		enriched[i] = model.EnrichedRecord{
			TransactionRecord: record,
			Category:          category,
		}
	}
	return enriched
}

// CountUnmatched returns how many enriched records fell back to the unknown category
// because their barcode is missing from lookup.
func CountUnmatched(records []model.EnrichedRecord, lookup model.CategoryLookup) int {
	count := 0
	for _, record := range records {
		if _, ok := lookup[record.Barcode]; !ok {
			count++
		}
	}
	return count
}
