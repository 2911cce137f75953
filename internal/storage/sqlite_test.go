package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testEntries() []model.CategoryEntry {
	return []model.CategoryEntry{
		{Barcode: "0001", Category: "Tools"},
		{Barcode: "0002", Category: "Electronics"},
		{Barcode: "ABC-9", Category: "Garden"},
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage(""); !errors.Is(err, ErrEmptyString) {
		t.Fatalf("Expected ErrEmptyString, got %v", err)
	}
}

func TestSQLiteStorage_ReplaceCategories(t *testing.T) {
	tests := []struct {
		setup    func(*testing.T, *SQLiteStorage, context.Context)
		validate func(*testing.T, *SQLiteStorage, context.Context)
		name     string
		entries  []model.CategoryEntry
		wantErr  bool
	}{
		{
			name:    "load into empty store",
			entries: testEntries(),
			validate: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				count, err := s.CountCategories(ctx)
				if err != nil {
					t.Fatalf("Failed to count categories: %v", err)
				}
				if count != 3 {
					t.Errorf("Expected 3 categories, got %d", count)
				}
			},
		},
		{
			name:    "rebuild fully replaces prior contents",
			entries: []model.CategoryEntry{{Barcode: "0001", Category: "Hardware"}},
			setup: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				if err := s.ReplaceCategories(ctx, "first.xlsx", testEntries(), nil); err != nil {
					t.Fatalf("Failed to seed categories: %v", err)
				}
			},
			validate: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				lookup, err := s.GetCategoryMapping(ctx)
				if err != nil {
					t.Fatalf("Failed to load mapping: %v", err)
				}
				if len(lookup) != 1 {
					t.Errorf("Expected 1 entry after rebuild, got %d", len(lookup))
				}
				if lookup["0001"] != "Hardware" {
					t.Errorf("Expected Hardware for 0001, got %q", lookup["0001"])
				}
				if _, ok := lookup["0002"]; ok {
					t.Error("Expected 0002 to be removed by rebuild")
				}
			},
		},
		{
			name:    "duplicate barcodes rejected",
			entries: []model.CategoryEntry{{Barcode: "0001", Category: "A"}, {Barcode: "0001", Category: "B"}},
			wantErr: true,
		},
		{
			name:    "failed rebuild keeps previous contents",
			entries: []model.CategoryEntry{{Barcode: "", Category: "Broken"}},
			setup: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				if err := s.ReplaceCategories(ctx, "first.xlsx", testEntries(), nil); err != nil {
					t.Fatalf("Failed to seed categories: %v", err)
				}
			},
			wantErr: true,
			validate: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				count, err := s.CountCategories(ctx)
				if err != nil {
					t.Fatalf("Failed to count categories: %v", err)
				}
				if count != 3 {
					t.Errorf("Expected previous 3 categories to survive, got %d", count)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			if tt.setup != nil {
				tt.setup(t, store, ctx)
			}

			err := store.ReplaceCategories(ctx, "test.xlsx", tt.entries, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReplaceCategories() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.validate != nil {
				tt.validate(t, store, ctx)
			}
		})
	}
}

func TestSQLiteStorage_GetCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.ReplaceCategories(ctx, "test.xlsx", testEntries(), nil); err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}

	category, ok, err := store.GetCategory(ctx, "0002")
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if !ok || category != "Electronics" {
		t.Errorf("Expected Electronics, got %q (found=%v)", category, ok)
	}

	// Barcodes are text: "2" must not match "0002".
	_, ok, err = store.GetCategory(ctx, "2")
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if ok {
		t.Error("Expected barcode 2 to be missing")
	}
}

func TestSQLiteStorage_ProgressAndLoads(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	load, err := store.LatestLoad(ctx)
	if err != nil {
		t.Fatalf("LatestLoad failed: %v", err)
	}
	if load != nil {
		t.Fatalf("Expected no loads on a fresh store, got %+v", load)
	}

	calls := 0
	if err := store.ReplaceCategories(ctx, "master_data.xlsx", testEntries(), func() { calls++ }); err != nil {
		t.Fatalf("ReplaceCategories failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 progress callbacks, got %d", calls)
	}

	load, err = store.LatestLoad(ctx)
	if err != nil {
		t.Fatalf("LatestLoad failed: %v", err)
	}
	if load == nil || load.Source != "master_data.xlsx" || load.EntryCount != 3 {
		t.Errorf("Unexpected load record: %+v", load)
	}

	entries, err := store.GetCategoryEntries(ctx)
	if err != nil {
		t.Fatalf("GetCategoryEntries failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Barcode != "0001" || entries[2].Barcode != "ABC-9" {
		t.Errorf("Unexpected entry order: %+v", entries)
	}
}
