package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/sales-pivot/internal/model"
)

// GetCategory returns the category of a barcode. The boolean is false when the barcode is unknown.
func (s *SQLiteStorage) GetCategory(ctx context.Context, barcode string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}

	var category string
	err := s.db.QueryRowContext(ctx, `SELECT category FROM master_data WHERE barcode = ?`, barcode).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query category: %w", err)
	}

	return category, true, nil
}

// GetCategoryMapping returns the whole reference table as an in-memory lookup.
func (s *SQLiteStorage) GetCategoryMapping(ctx context.Context) (model.CategoryLookup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT barcode, category FROM master_data`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lookup := make(model.CategoryLookup)
	for rows.Next() {
		var barcode, category string
		if err := rows.Scan(&barcode, &category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		lookup[barcode] = category
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("loaded category mapping", "count", len(lookup))
	return lookup, nil
}

// GetCategoryEntries returns every entry ordered by barcode.
func (s *SQLiteStorage) GetCategoryEntries(ctx context.Context) ([]model.CategoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT barcode, category FROM master_data ORDER BY barcode`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CategoryEntry
	for rows.Next() {
		var entry model.CategoryEntry
		if err := rows.Scan(&entry.Barcode, &entry.Category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return entries, nil
}

// CountCategories returns the number of reference entries.
func (s *SQLiteStorage) CountCategories(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM master_data`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// ReplaceCategories replaces the whole reference table with entries in one transaction.
// onProgress, when non-nil, is called after each inserted entry.
func (s *SQLiteStorage) ReplaceCategories(ctx context.Context, source string, entries []model.CategoryEntry, onProgress func()) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(source, "source"); err != nil {
		return err
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM master_data`); err != nil {
		return fmt.Errorf("failed to clear reference table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO master_data (barcode, category) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.Barcode, entry.Category); err != nil {
			return fmt.Errorf("failed to insert barcode %q: %w", entry.Barcode, err)
		}
		if onProgress != nil {
			onProgress()
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reference_loads (source, entry_count, loaded_at) VALUES (?, ?, ?)`,
		source, len(entries), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record reference load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reference load: %w", err)
	}

	slog.Info("replaced reference table", "source", source, "entries", len(entries))
	return nil
}

// LatestLoad returns the most recent reference load, or nil when the store was never loaded.
func (s *SQLiteStorage) LatestLoad(ctx context.Context) (*model.ReferenceLoad, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var load model.ReferenceLoad
	err := s.db.QueryRowContext(ctx, `
		SELECT source, entry_count, loaded_at
		FROM reference_loads
		ORDER BY id DESC
		LIMIT 1`,
	).Scan(&load.Source, &load.EntryCount, &load.LoadedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reference loads: %w", err)
	}

	return &load, nil
}
