// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// ReferenceStore defines the contract for the barcode to category reference data.
type ReferenceStore interface {
	GetCategory(ctx context.Context, barcode string) (string, bool, error)
	GetCategoryMapping(ctx context.Context) (model.CategoryLookup, error)
	GetCategoryEntries(ctx context.Context) ([]model.CategoryEntry, error)
	CountCategories(ctx context.Context) (int, error)
	ReplaceCategories(ctx context.Context, source string, entries []model.CategoryEntry, onProgress func()) error
	LatestLoad(ctx context.Context) (*model.ReferenceLoad, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter persists computed reporting tables.
type ReportWriter interface {
	Write(ctx context.Context, path string, tables *model.ReportingTables) error
}
