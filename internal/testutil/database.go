// Package testutil provides shared fixtures for the sales-pivot tests: an in-memory
// reference store, transaction record builders and in-memory workbooks.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/storage"
)

// SetupTestStore creates a migrated in-memory reference store seeded with entries.
// The store is closed when the test finishes.
//
// Example:
//
//	store := testutil.SetupTestStore(t, testutil.ReferenceEntries())
func SetupTestStore(t *testing.T, entries []model.CategoryEntry) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(entries) > 0 {
		if err := store.ReplaceCategories(ctx, "testutil", entries, nil); err != nil {
			t.Fatalf("failed to seed reference entries: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// ReferenceEntries returns the reference mapping used by the worked example.
func ReferenceEntries() []model.CategoryEntry {
	return []model.CategoryEntry{
		{Barcode: "0001", Category: "Tools"},
		{Barcode: "0002", Category: "Electronics"},
	}
}
