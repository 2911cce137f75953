package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/testutil"
)

func TestParseReferenceSheet(t *testing.T) {
	tests := []struct {
		name    string
		header  []any
		rows    [][]any
		want    []model.CategoryEntry
		wantErr bool
	}{
		{
			name:   "named columns",
			header: []any{"Category", "Barcode"},
			rows: [][]any{
				{"Tools", "0001"},
				{"Electronics", "0002"},
			},
			want: []model.CategoryEntry{
				{Barcode: "0001", Category: "Tools"},
				{Barcode: "0002", Category: "Electronics"},
			},
		},
		{
			name:   "legacy A and B header",
			header: []any{"A", "B"},
			rows: [][]any{
				{"0001", "Tools"},
				{12345, "Garden"},
			},
			want: []model.CategoryEntry{
				{Barcode: "0001", Category: "Tools"},
				{Barcode: "12345", Category: "Garden"},
			},
		},
		{
			name:   "duplicate barcode keeps last category",
			header: []any{"Barcode", "Category"},
			rows: [][]any{
				{"0001", "Tools"},
				{"0002", "Electronics"},
				{"0001", "Hardware"},
			},
			want: []model.CategoryEntry{
				{Barcode: "0001", Category: "Hardware"},
				{Barcode: "0002", Category: "Electronics"},
			},
		},
		{
			name:   "blank cells skipped",
			header: []any{"Barcode", "Category"},
			rows: [][]any{
				{"", "Tools"},
				{"0002", ""},
				{"0003", "Garden"},
			},
			want: []model.CategoryEntry{
				{Barcode: "0003", Category: "Garden"},
			},
		},
		{
			name:    "missing columns",
			header:  []any{"Code", "Group"},
			rows:    [][]any{{"0001", "Tools"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseReferenceSheet(testutil.Workbook(t, tt.header, tt.rows), Options{})
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrIngestion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, entries)
		})
	}
}

func TestParseReferenceSheet_StoresCleanly(t *testing.T) {
	rows := [][]any{{"0001", "Tools"}, {"0001", "Hardware"}, {"0002", "Electronics"}}
	entries, err := ParseReferenceSheet(testutil.Workbook(t, []any{"Barcode", "Category"}, rows), Options{})
	require.NoError(t, err)

	store := testutil.SetupTestStore(t, entries)
	category, ok, err := store.GetCategory(context.Background(), "0001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Hardware", category)
}
