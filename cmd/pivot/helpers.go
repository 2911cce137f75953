package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/config"
	"github.com/Veraticus/sales-pivot/internal/storage"
)

// loadSettings resolves settings from flags, environment and config file.
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return settings, nil
}

// initStorage opens the reference database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Could not open reference database %s", settings.DatabasePath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// requireFile fails early with a readable message when path does not name a regular file.
func requireFile(path, what string) error {
	if path == "" {
		return common.NewUserError(fmt.Sprintf("No %s given; pass --file", what), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Cannot read %s %s", what, path), err)
	}
	if info.IsDir() {
		return common.NewUserError(fmt.Sprintf("%s %s is a directory", what, path), nil)
	}
	return nil
}

// sourceName is the label stored for a loaded file.
func sourceName(path string) string {
	return filepath.Base(path)
}
