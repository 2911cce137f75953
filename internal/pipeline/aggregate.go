package pipeline

import (
	"cmp"
	"slices"
	"sync"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// DefaultTopN is the number of rows kept in the top products table.
const DefaultTopN = 10

// Options tunes the aggregation stage.
type Options struct {
	TopN          int  // Rows kept in the top products table; <= 0 means DefaultTopN
	SubtotalDepth int  // Pivot key prefixes that get a subtotal row, 0 through PivotKeyDepth-1
	Parallel      bool // Compute the five tables concurrently
	Verify        bool // Check cross-table invariants after aggregation
	Verbose       bool // Log row counts after each stage
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TopN:          DefaultTopN,
		SubtotalDepth: model.PivotKeyDepth - 1,
	}
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}
	return o.TopN
}

func (o Options) subtotalDepth() int {
	return min(max(o.SubtotalDepth, 0), model.PivotKeyDepth-1)
}

// Aggregate computes the five reporting tables from one filtered record set.
func Aggregate(records []model.FilteredRecord, opts Options) *model.ReportingTables {
	tables := &model.ReportingTables{RecordCount: len(records)}

	steps := []func(){
		func() { tables.Pivot = PivotSummary(records, opts.subtotalDepth()) },
		func() { tables.Marketplaces = MarketplaceComparison(records) },
		func() { tables.TopProducts = TopProducts(records, opts.topN()) },
		func() { tables.Categories = CategoryComparison(records) },
		func() { tables.DailyTrend = DailyTrend(records) },
	}

	if !opts.Parallel {
		for _, step := range steps {
			step()
		}
		return tables
	}

	// Each step reads records and writes a distinct field.
	var wg sync.WaitGroup
	for _, step := range steps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			step()
		}()
	}
	wg.Wait()

	return tables
}

// PivotSummary groups by (marketplace, barcode, product, price, category) in ascending key
// order. After each group sharing a key prefix of length 1..subtotalDepth a subtotal row is
// emitted, deepest level first, and a grand-total row closes the table.
func PivotSummary(records []model.FilteredRecord, subtotalDepth int) []model.PivotRow {
	groups := newGrouper[model.PivotKey, totals](len(records))
	for i := range records {
		r := &records[i]
		key := model.PivotKey{
			Marketplace: r.Marketplace,
			Barcode:     r.Barcode,
			Product:     r.Product,
			Price:       r.Price,
			Category:    r.Category,
		}
		groups.at(key).add(r.Quantity, r.LineTotal)
	}

	details := make([]model.PivotRow, 0, len(groups.keys))
	groups.each(func(key model.PivotKey, t totals) {
		details = append(details, model.PivotRow{
			Key:         key,
			Depth:       model.PivotKeyDepth,
			Quantity:    t.quantity,
			TotalAmount: t.amount,
		})
	})
	slices.SortFunc(details, func(a, b model.PivotRow) int {
		return comparePivotKeys(a.Key, b.Key)
	})

	rows := make([]model.PivotRow, 0, len(details)*2+1)
	open := make([]model.PivotRow, subtotalDepth+1) // open[d] accumulates the current prefix of length d
	var grand model.PivotRow

	closeLevels := func(from int) {
		for d := subtotalDepth; d >= from; d-- {
			rows = append(rows, open[d])
		}
	}

	for i, detail := range details {
		diff := -1
		if i > 0 {
			diff = firstDifference(details[i-1].Key, detail.Key)
			closeLevels(diff + 1)
		}
		for d := 1; d <= subtotalDepth; d++ {
			if d > diff {
				open[d] = model.PivotRow{Key: prefixKey(detail.Key, d), Depth: d}
			}
			open[d].Quantity += detail.Quantity
			open[d].TotalAmount += detail.TotalAmount
		}
		rows = append(rows, detail)
		grand.Quantity += detail.Quantity
		grand.TotalAmount += detail.TotalAmount
	}
	if len(details) > 0 {
		closeLevels(1)
	}

	return append(rows, grand)
}

// MarketplaceComparison sums quantity and line total per marketplace, ascending by marketplace.
func MarketplaceComparison(records []model.FilteredRecord) []model.MarketplaceRow {
	groups := newGrouper[string, totals](8)
	for i := range records {
		groups.at(records[i].Marketplace).add(records[i].Quantity, records[i].LineTotal)
	}

	rows := make([]model.MarketplaceRow, 0, len(groups.keys))
	groups.each(func(marketplace string, t totals) {
		rows = append(rows, model.MarketplaceRow{Marketplace: marketplace, Quantity: t.quantity, TotalAmount: t.amount})
	})
	slices.SortFunc(rows, func(a, b model.MarketplaceRow) int {
		return cmp.Compare(a.Marketplace, b.Marketplace)
	})
	return rows
}

// ProductTotals sums quantity per (barcode, product, category), ascending by key.
func ProductTotals(records []model.FilteredRecord) []model.ProductRow {
	type productKey struct{ barcode, product, category string }

	groups := newGrouper[productKey, float64](len(records))
	for i := range records {
		r := &records[i]
		*groups.at(productKey{r.Barcode, r.Product, r.Category}) += r.Quantity
	}

	rows := make([]model.ProductRow, 0, len(groups.keys))
	groups.each(func(key productKey, quantity float64) {
		rows = append(rows, model.ProductRow{
			Barcode:  key.barcode,
			Product:  key.product,
			Category: key.category,
			Quantity: quantity,
		})
	})
	slices.SortFunc(rows, compareProducts)
	return rows
}

// TopProducts returns the n best-selling products by quantity. Ties keep ascending key order,
// so the cut at the nth row is deterministic.
func TopProducts(records []model.FilteredRecord, n int) []model.ProductRow {
	rows := ProductTotals(records)
	slices.SortStableFunc(rows, func(a, b model.ProductRow) int {
		return cmp.Compare(b.Quantity, a.Quantity)
	})
	if len(rows) > n {
		rows = rows[:n:n]
	}
	return rows
}

// CategoryComparison sums quantity and line total per category, ascending by category.
func CategoryComparison(records []model.FilteredRecord) []model.CategoryRow {
	groups := newGrouper[string, totals](16)
	for i := range records {
		groups.at(records[i].Category).add(records[i].Quantity, records[i].LineTotal)
	}

	rows := make([]model.CategoryRow, 0, len(groups.keys))
	groups.each(func(category string, t totals) {
		rows = append(rows, model.CategoryRow{Category: category, Quantity: t.quantity, TotalAmount: t.amount})
	})
	slices.SortFunc(rows, func(a, b model.CategoryRow) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return rows
}

// DailyTrend sums every numeric column per calendar day, ascending. Only days present in
// records are emitted; gaps are not zero-filled.
func DailyTrend(records []model.FilteredRecord) []model.DailyRow {
	groups := newGrouper[int64, model.DailyRow](32)
	for i := range records {
		r := &records[i]
		day := r.Day()
		row := groups.at(day.Unix())
		row.Day = day
		row.Quantity += r.Quantity
		row.Amount += r.Amount
		row.Discount += r.Discount
		row.Price += r.Price
		row.VatAmount += r.VatAmount
		row.TotalAmount += r.LineTotal
	}

	rows := make([]model.DailyRow, 0, len(groups.keys))
	groups.each(func(_ int64, row model.DailyRow) {
		rows = append(rows, row)
	})
	slices.SortFunc(rows, func(a, b model.DailyRow) int {
		return a.Day.Compare(b.Day)
	})
	return rows
}

func comparePivotKeys(a, b model.PivotKey) int {
	return cmp.Or(
		cmp.Compare(a.Marketplace, b.Marketplace),
		cmp.Compare(a.Barcode, b.Barcode),
		cmp.Compare(a.Product, b.Product),
		cmp.Compare(a.Price, b.Price),
		cmp.Compare(a.Category, b.Category),
	)
}

func compareProducts(a, b model.ProductRow) int {
	return cmp.Or(
		cmp.Compare(a.Barcode, b.Barcode),
		cmp.Compare(a.Product, b.Product),
		cmp.Compare(a.Category, b.Category),
	)
}

// firstDifference returns the index of the first pivot key field that differs between a and b,
// or model.PivotKeyDepth when the keys are equal.
func firstDifference(a, b model.PivotKey) int {
	switch {
	case a.Marketplace != b.Marketplace:
		return 0
	case a.Barcode != b.Barcode:
		return 1
	case a.Product != b.Product:
		return 2
	case a.Price != b.Price:
		return 3
	case a.Category != b.Category:
		return 4
	default:
		return model.PivotKeyDepth
	}
}

// prefixKey keeps the first depth fields of key and zeroes the rest.
func prefixKey(key model.PivotKey, depth int) model.PivotKey {
	var prefix model.PivotKey
	if depth >= 1 {
		prefix.Marketplace = key.Marketplace
	}
	if depth >= 2 {
		prefix.Barcode = key.Barcode
	}
	if depth >= 3 {
		prefix.Product = key.Product
	}
	if depth >= 4 {
		prefix.Price = key.Price
	}
	return prefix
}
