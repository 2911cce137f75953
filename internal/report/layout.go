package report

import "github.com/Veraticus/sales-pivot/internal/model"

// PivotHeader is the column header of the pivot sheet, key fields first.
var PivotHeader = []any{"MarketPlace", "Barcode", "Product", "Price", "Category", "Quantity", "Total Amount"}

// sheetLayout is the content of one exported sheet.
type sheetLayout struct {
	header []any
	rows   [][]any
	totals []int // 1-based data row numbers rendered bold
	name   string
	widths []float64
}

func pivotLayout(pivot []model.PivotRow) sheetLayout {
	rows := make([][]any, len(pivot))
	var totals []int
	for i, row := range pivot {
		rows[i] = PivotCells(row)
		if row.IsTotal() {
			totals = append(totals, i+1)
		}
	}

	return sheetLayout{
		name:   SheetPivot,
		header: PivotHeader,
		rows:   rows,
		totals: totals,
		widths: []float64{24, 18, 36, 10, 20, 12, 16},
	}
}

// PivotCells returns the cells of one pivot row. Subtotal rows keep their key prefix and put
// model.TotalLabel in the first aggregated-away column; the grand total has the label alone.
func PivotCells(row model.PivotRow) []any {
	key := []any{row.Key.Marketplace, row.Key.Barcode, row.Key.Product, row.Key.Price, row.Key.Category}
	if row.IsTotal() {
		for i := row.Depth; i < len(key); i++ {
			key[i] = ""
		}
		key[row.Depth] = model.TotalLabel
	}
	return append(key, row.Quantity, row.TotalAmount)
}

func marketplaceRows(rows []model.MarketplaceRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.Marketplace, r.Quantity, r.TotalAmount}
	}
	return out
}

func productRows(rows []model.ProductRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.Barcode, r.Product, r.Category, r.Quantity}
	}
	return out
}

func categoryRows(rows []model.CategoryRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.Category, r.Quantity, r.TotalAmount}
	}
	return out
}
