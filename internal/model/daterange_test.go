package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange_Contains(t *testing.T) {
	r, err := ParseDateRange("2024-07-01", "2024-07-31")
	require.NoError(t, err)

	tests := []struct {
		at   time.Time
		name string
		want bool
	}{
		{name: "start of first day", at: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), want: true},
		{name: "end of last day", at: time.Date(2024, 7, 31, 23, 59, 59, 0, time.UTC), want: true},
		{name: "day after end", at: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), want: false},
		{name: "just before start", at: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), want: false},
		{name: "wall clock in another zone", at: time.Date(2024, 7, 31, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.at))
		})
	}
}

func TestDateRange_Valid(t *testing.T) {
	same := NewDateRange(time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC), time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC))
	assert.True(t, same.Valid(), "times within one day collapse to the same day")
	assert.True(t, same.Contains(time.Date(2024, 7, 1, 23, 0, 0, 0, time.UTC)))

	reversed, err := ParseDateRange("2024-08-01", "2024-07-01")
	require.NoError(t, err)
	assert.False(t, reversed.Valid())
	assert.Equal(t, "2024-08-01 to 2024-07-01", reversed.String())
}

func TestParseDateRange_Malformed(t *testing.T) {
	_, err := ParseDateRange("07/01/2024", "2024-07-31")
	assert.Error(t, err)

	_, err = ParseDateRange("2024-07-01", "")
	assert.Error(t, err)
}

func TestCategoryLookup(t *testing.T) {
	lookup := NewCategoryLookup([]CategoryEntry{
		{Barcode: "0001", Category: "Tools"},
		{Barcode: "0001", Category: "Hardware"},
		{Barcode: "0002", Category: "Electronics"},
	})

	category, ok := lookup.Category("0001")
	assert.True(t, ok)
	assert.Equal(t, "Hardware", category, "later entries win")

	category, ok = lookup.Category("1")
	assert.False(t, ok)
	assert.Equal(t, UnknownCategory, category)
}

func TestReportingTables_GrandTotal(t *testing.T) {
	tables := &ReportingTables{Pivot: []PivotRow{
		{Key: PivotKey{Marketplace: "MarketA"}, Depth: PivotKeyDepth, Quantity: 2},
		{Key: PivotKey{Marketplace: "MarketA"}, Depth: 1, Quantity: 2},
		{Depth: 0, Quantity: 2, TotalAmount: 10},
	}}

	grand := tables.GrandTotal()
	assert.True(t, grand.IsGrandTotal())
	assert.Equal(t, 10.0, grand.TotalAmount)
	assert.True(t, tables.Pivot[1].IsTotal())
	assert.False(t, tables.Pivot[0].IsTotal())

	assert.Equal(t, PivotRow{}, (&ReportingTables{}).GrandTotal())
}
