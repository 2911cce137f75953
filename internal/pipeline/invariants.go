package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
)

// tolerance absorbs float summation-order differences between tables.
const tolerance = 1e-9

// CheckConsistency verifies the cross-table invariants of tables computed from records.
func CheckConsistency(records []model.FilteredRecord, tables *model.ReportingTables) error {
	var problems []string
	grand := tables.GrandTotal()

	var detailQty, detailAmount float64
	for _, row := range tables.Pivot {
		if !row.IsTotal() {
			detailQty += row.Quantity
			detailAmount += row.TotalAmount
		}
	}
	if detailQty != grand.Quantity || detailAmount != grand.TotalAmount {
		problems = append(problems, fmt.Sprintf("pivot rows sum to (%v, %v), grand total is (%v, %v)",
			detailQty, detailAmount, grand.Quantity, grand.TotalAmount))
	}

	var marketQty, marketAmount float64
	for _, row := range tables.Marketplaces {
		marketQty += row.Quantity
		marketAmount += row.TotalAmount
	}
	if !almostEqual(marketQty, grand.Quantity) || !almostEqual(marketAmount, grand.TotalAmount) {
		problems = append(problems, fmt.Sprintf("marketplace totals (%v, %v) differ from grand total (%v, %v)",
			marketQty, marketAmount, grand.Quantity, grand.TotalAmount))
	}

	var categoryQty, categoryAmount float64
	for _, row := range tables.Categories {
		categoryQty += row.Quantity
		categoryAmount += row.TotalAmount
	}
	if !almostEqual(categoryQty, grand.Quantity) || !almostEqual(categoryAmount, grand.TotalAmount) {
		problems = append(problems, fmt.Sprintf("category totals (%v, %v) differ from grand total (%v, %v)",
			categoryQty, categoryAmount, grand.Quantity, grand.TotalAmount))
	}

	problems = append(problems, checkTopProducts(ProductTotals(records), tables.TopProducts)...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInconsistentReport, strings.Join(problems, "; "))
	}
	return nil
}

func checkTopProducts(all, top []model.ProductRow) []string {
	var problems []string

	full := make(map[model.ProductRow]struct{}, len(all))
	for _, row := range all {
		full[row] = struct{}{}
	}

	inTop := make(map[model.ProductRow]struct{}, len(top))
	for i, row := range top {
		if _, ok := full[row]; !ok {
			problems = append(problems, fmt.Sprintf("top product %q (%s) is not in the product grouping", row.Product, row.Barcode))
		}
		if i > 0 && top[i-1].Quantity < row.Quantity {
			problems = append(problems, fmt.Sprintf("top products not descending at row %d", i))
		}
		inTop[row] = struct{}{}
	}

	if len(top) == 0 || len(top) == len(all) {
		return problems
	}

	cutoff := top[len(top)-1].Quantity
	for _, row := range all {
		if _, ok := inTop[row]; !ok && row.Quantity > cutoff {
			problems = append(problems, fmt.Sprintf("product %q (%s) sold %v but was left out of top products", row.Product, row.Barcode, row.Quantity))
		}
	}
	return problems
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
