package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/report"
)

// Table titles, matching the exported sheet names where a sheet exists.
const (
	TitlePivot        = report.SheetPivot
	TitleMarketplaces = report.SheetMarketplaces
	TitleTopProducts  = report.SheetTopProducts
	TitleCategories   = report.SheetCategories
	TitleDailyTrend   = "Daily Trend"
)

// RenderReport renders a summary box followed by all five tables.
func RenderReport(tables *model.ReportingTables) string {
	sections := []string{
		RenderSummary(tables),
		section(TitlePivot, RenderPivot(tables.Pivot)),
		section(TitleMarketplaces, RenderMarketplaces(tables.Marketplaces)),
		section(TitleTopProducts, RenderTopProducts(tables.TopProducts)),
		section(TitleCategories, RenderCategories(tables.Categories)),
		section(TitleDailyTrend, RenderDailyTrend(tables.DailyTrend)),
	}
	return strings.Join(sections, "\n\n")
}

// RenderSummary renders the headline numbers of a report in a box.
func RenderSummary(tables *model.ReportingTables) string {
	grand := tables.GrandTotal()
	lines := []string{
		fmt.Sprintf("Period:        %s", tables.Range.String()),
		fmt.Sprintf("Orders:        %d", tables.RecordCount),
		fmt.Sprintf("Marketplaces:  %d", len(tables.Marketplaces)),
		fmt.Sprintf("Quantity:      %s", FormatNumber(grand.Quantity)),
		fmt.Sprintf("Total Amount:  %s", FormatNumber(grand.TotalAmount)),
	}
	return RenderBox(ChartIcon+" Sales Report", strings.Join(lines, "\n"))
}

// RenderPivot renders the pivot summary. Subtotal and grand-total rows are shown in bold.
func RenderPivot(rows []model.PivotRow) string {
	data := make([][]string, len(rows))
	totals := make(map[int]bool)
	for i, row := range rows {
		cells := report.PivotCells(row)
		data[i] = make([]string, len(cells))
		for j, c := range cells {
			data[i][j] = formatCell(c)
		}
		if row.IsTotal() {
			totals[i] = true
		}
	}

	return newTable(headerStrings(report.PivotHeader), data, []int{3, 5, 6}, totals)
}

// RenderMarketplaces renders the marketplace comparison.
func RenderMarketplaces(rows []model.MarketplaceRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Marketplace, FormatNumber(r.Quantity), FormatNumber(r.TotalAmount)}
	}
	return newTable([]string{"MarketPlace", "Quantity", "Total Amount"}, data, []int{1, 2}, nil)
}

// RenderTopProducts renders the top products with their rank.
func RenderTopProducts(rows []model.ProductRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{strconv.Itoa(i + 1), r.Barcode, r.Product, r.Category, FormatNumber(r.Quantity)}
	}
	return newTable([]string{"#", "Barcode", "Product", "Category", "Quantity"}, data, []int{0, 4}, nil)
}

// RenderCategories renders the category comparison.
func RenderCategories(rows []model.CategoryRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Category, FormatNumber(r.Quantity), FormatNumber(r.TotalAmount)}
	}
	return newTable([]string{"Category", "Quantity", "Total Amount"}, data, []int{1, 2}, nil)
}

// RenderDailyTrend renders the per-day sums.
func RenderDailyTrend(rows []model.DailyRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			r.Day.Format(model.DateLayout),
			FormatNumber(r.Quantity),
			FormatNumber(r.Amount),
			FormatNumber(r.Discount),
			FormatNumber(r.VatAmount),
			FormatNumber(r.TotalAmount),
		}
	}
	return newTable([]string{"Day", "Quantity", "Amount", "Discount", "Vat Amount", "Total Amount"}, data, []int{1, 2, 3, 4, 5}, nil)
}

// FormatNumber prints whole numbers without decimals and everything else with two.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return FormatNumber(c)
	default:
		return fmt.Sprint(c)
	}
}

func headerStrings(header []any) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = fmt.Sprint(h)
	}
	return out
}

func section(title, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), body)
}

func newTable(headers []string, rows [][]string, numeric []int, bold map[int]bool) string {
	if len(rows) == 0 {
		return SubtitleStyle.Render("(no rows)")
	}

	numericCols := make(map[int]bool, len(numeric))
	for _, col := range numeric {
		numericCols[col] = true
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(BorderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case bold[row]:
				return TableTotalStyle.Align(alignment(numericCols[col]))
			case numericCols[col]:
				return TableNumberStyle
			default:
				return TableCellStyle
			}
		})

	return t.Render()
}

func alignment(numeric bool) lipgloss.Position {
	if numeric {
		return lipgloss.Right
	}
	return lipgloss.Left
}
