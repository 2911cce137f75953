package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// Run enriches, filters and aggregates records into the reporting tables.
// An invalid date range fails before any record is touched; no partial tables are returned
// on error.
func Run(records []model.TransactionRecord, lookup model.CategoryLookup, criteria model.FilterCriteria, opts Options) (*model.ReportingTables, error) {
	if !criteria.Range.Valid() {
		return nil, fmt.Errorf("%w: start %s is after end %s", common.ErrInvalidRange,
			criteria.Range.Start.Format(model.DateLayout), criteria.Range.End.Format(model.DateLayout))
	}

	enriched := Enrich(records, lookup)
	unmatched := CountUnmatched(enriched, lookup)
	if unmatched > 0 {
		common.LogDebug("barcodes missing from reference", common.Fields{"unmatched": unmatched})
	}
	if opts.Verbose {
		slog.Info("enriched records",
			"records", len(enriched),
			"unmatched_barcodes", unmatched)
	}

	filtered, err := Filter(enriched, criteria)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		slog.Info("filtered records",
			"kept", len(filtered),
			"dropped", len(enriched)-len(filtered),
			"range", criteria.Range.String(),
			"marketplaces", criteria.Marketplaces,
			"excluded_status", criteria.ExcludedStatus())
	}

	tables := Aggregate(filtered, opts)
	tables.Range = criteria.Range
	if opts.Verbose {
		slog.Info("aggregated tables",
			"pivot_rows", len(tables.Pivot),
			"marketplaces", len(tables.Marketplaces),
			"top_products", len(tables.TopProducts),
			"categories", len(tables.Categories),
			"days", len(tables.DailyTrend))
	}

	if opts.Verify {
		if err := CheckConsistency(filtered, tables); err != nil {
			return nil, err
		}
	}

	return tables, nil
}
