package model

import "time"

// TotalLabel marks synthetic subtotal and grand-total rows.
const TotalLabel = "Total"

// PivotKeyDepth is the number of fields in a pivot grouping key.
const PivotKeyDepth = 5

// FilterCriteria selects which enriched records reach the aggregates.
type FilterCriteria struct {
	CancelledStatus string // Exact, case-sensitive match; empty means DefaultCancelledStatus
	Marketplaces    []string
	Range           DateRange
}

// ExcludedStatus returns the status value dropped by the filter.
func (c FilterCriteria) ExcludedStatus() string {
	if c.CancelledStatus == "" {
		return DefaultCancelledStatus
	}
	return c.CancelledStatus
}

// PivotKey is the grouping key of the pivot summary, outermost field first.
type PivotKey struct {
	Marketplace string  `json:"marketplace"`
	Barcode     string  `json:"barcode"`
	Product     string  `json:"product"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

// PivotRow is one row of the pivot summary.
// Depth is PivotKeyDepth for detail rows, 1 through PivotKeyDepth-1 for subtotals of the
// first Depth key fields, and 0 for the grand total.
type PivotRow struct {
	Key         PivotKey `json:"key"`
	Depth       int      `json:"depth"`
	Quantity    float64  `json:"quantity"`
	TotalAmount float64  `json:"totalAmount"`
}

// IsTotal reports whether the row is a synthetic subtotal or grand total.
func (r PivotRow) IsTotal() bool {
	return r.Depth < PivotKeyDepth
}

// IsGrandTotal reports whether the row is the grand total.
func (r PivotRow) IsGrandTotal() bool {
	return r.Depth == 0
}

// MarketplaceRow holds the totals of one marketplace.
type MarketplaceRow struct {
	Marketplace string  `json:"marketplace"`
	Quantity    float64 `json:"quantity"`
	TotalAmount float64 `json:"totalAmount"`
}

// ProductRow holds the quantity sold of one product.
type ProductRow struct {
	Barcode  string  `json:"barcode"`
	Product  string  `json:"product"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
}

// CategoryRow holds the totals of one category.
type CategoryRow struct {
	Category    string  `json:"category"`
	Quantity    float64 `json:"quantity"`
	TotalAmount float64 `json:"totalAmount"`
}

// DailyRow holds the sums of every numeric column for one calendar day.
type DailyRow struct {
	Day         time.Time `json:"day"`
	Quantity    float64   `json:"quantity"`
	Amount      float64   `json:"amount"`
	Discount    float64   `json:"discount"`
	Price       float64   `json:"price"`
	VatAmount   float64   `json:"vatAmount"`
	TotalAmount float64   `json:"totalAmount"`
}

// ReportingTables holds the five aggregates computed from one filtered record set.
type ReportingTables struct {
	Range        DateRange        `json:"range"`
	Pivot        []PivotRow       `json:"pivot"`
	Marketplaces []MarketplaceRow `json:"marketplaces"`
	TopProducts  []ProductRow     `json:"topProducts"`
	Categories   []CategoryRow    `json:"categories"`
	DailyTrend   []DailyRow       `json:"dailyTrend"`
	RecordCount  int              `json:"recordCount"`
}

// GrandTotal returns the pivot grand-total row.
func (t *ReportingTables) GrandTotal() PivotRow {
	for i := len(t.Pivot) - 1; i >= 0; i-- {
		if t.Pivot[i].IsGrandTotal() {
			return t.Pivot[i]
		}
	}
	return PivotRow{}
}
