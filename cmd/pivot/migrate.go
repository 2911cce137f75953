package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sales-pivot/internal/cli"
	"github.com/Veraticus/sales-pivot/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the reference database schema to the latest version.

Every other command migrates automatically; use --status to inspect the
schema without changing it.`,
		RunE: runMigrate,
	}

	// Flags
	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	slog.Info("Starting database migration",
		"database", settings.DatabasePath,
		"status_only", status)

	// Create storage instance
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	out := cmd.OutOrStdout()
	if status {
		content := fmt.Sprintf("Database:        %s\nCurrent version: %d\nLatest version:  %d",
			settings.DatabasePath, current, storage.ExpectedSchemaVersion)
		fmt.Fprintln(out, cli.RenderBox(cli.FolderIcon+" Database Migration Status", content)) //nolint:forbidigo // User-facing output
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database schema at version %d (was %d)", storage.ExpectedSchemaVersion, current))) //nolint:forbidigo // User-facing output
	return nil
}
