package pipeline

import (
	"fmt"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// Filter keeps the records matching criteria and derives their line totals.
//
// Predicates run in a fixed order: date range, marketplace membership, status exclusion.
// Records without an order date never pass the date range. An empty marketplace selection
// keeps every marketplace. The status comparison is exact and case-sensitive.
func Filter(records []model.EnrichedRecord, criteria model.FilterCriteria) ([]model.FilteredRecord, error) {
	if !criteria.Range.Valid() {
		return nil, fmt.Errorf("%w: start %s is after end %s", common.ErrInvalidRange,
			criteria.Range.Start.Format(model.DateLayout), criteria.Range.End.Format(model.DateLayout))
	}

	marketplaces := make(map[string]struct{}, len(criteria.Marketplaces))
	for _, m := range criteria.Marketplaces {
		marketplaces[m] = struct{}{}
	}
	excluded := criteria.ExcludedStatus()

	filtered := make([]model.FilteredRecord, 0, len(records))
	for _, record := range records {
		if record.OrderDate == nil || !criteria.Range.Contains(*record.OrderDate) {
			continue
		}
		if len(marketplaces) > 0 {
			if _, ok := marketplaces[record.Marketplace]; !ok {
				continue
			}
		}
		if record.Status == excluded {
			continue
		}

		filtered = append(filtered, model.FilteredRecord{
			EnrichedRecord: record,
			OrderDate:      *record.OrderDate,
			LineTotal:      record.Quantity * record.Price,
		})
	}

	return filtered, nil
}

// Unwrap returns the enriched records behind a filtered set, so the set can be filtered again.
func Unwrap(records []model.FilteredRecord) []model.EnrichedRecord {
	enriched := make([]model.EnrichedRecord, len(records))
	for i := range records {
		enriched[i] = records[i].Enriched()
	}
	return enriched
}
