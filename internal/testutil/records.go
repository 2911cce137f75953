package testutil

import (
	"time"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// Day parses a YYYY-MM-DD or "YYYY-MM-DD HH:MM:SS" value into a UTC time pointer.
// It panics on malformed input since fixtures are static.
func Day(value string) *time.Time {
	layout := model.DateLayout
	if len(value) > len(model.DateLayout) {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		panic(err)
	}
	return &t
}

// Range builds an inclusive date range from two YYYY-MM-DD values.
func Range(start, end string) model.DateRange {
	return model.NewDateRange(*Day(start), *Day(end))
}

// RecordBuilder builds transaction records with sensible defaults.
type RecordBuilder struct {
	record model.TransactionRecord
}

// NewRecord starts a COMPLETE order of one unit on 2024-07-01.
func NewRecord(marketplace, barcode, product string) *RecordBuilder {
	return &RecordBuilder{record: model.TransactionRecord{
		Marketplace: marketplace,
		OrderDate:   Day("2024-07-01"),
		Status:      "COMPLETE",
		Barcode:     barcode,
		Product:     product,
		Quantity:    1,
	}}
}

// On sets the order date; an empty value clears it.
func (b *RecordBuilder) On(date string) *RecordBuilder {
	if date == "" {
		b.record.OrderDate = nil
		return b
	}
	b.record.OrderDate = Day(date)
	return b
}

// Status sets the order status.
func (b *RecordBuilder) Status(status string) *RecordBuilder {
	b.record.Status = status
	return b
}

// Qty sets the quantity.
func (b *RecordBuilder) Qty(quantity float64) *RecordBuilder {
	b.record.Quantity = quantity
	return b
}

// Price sets the unit price.
func (b *RecordBuilder) Price(price float64) *RecordBuilder {
	b.record.Price = price
	return b
}

// Amounts sets the amount, discount and VAT columns.
func (b *RecordBuilder) Amounts(amount, discount, vat float64) *RecordBuilder {
	b.record.Amount = amount
	b.record.Discount = discount
	b.record.VatAmount = vat
	return b
}

// Build returns the record.
func (b *RecordBuilder) Build() model.TransactionRecord {
	return b.record
}

// ExampleRecords returns the three-line worked example: two Widget orders on MarketA, one of
// them cancelled, and one Gadget order on MarketB.
func ExampleRecords() []model.TransactionRecord {
	return []model.TransactionRecord{
		NewRecord("MarketA", "0001", "Widget").On("2024-07-01").Qty(2).Price(5).Build(),
		NewRecord("MarketA", "0001", "Widget").On("2024-07-02").Status("CANCELLED").Qty(1).Price(5).Build(),
		NewRecord("MarketB", "0002", "Gadget").On("2024-07-01").Qty(3).Price(10).Build(),
	}
}
