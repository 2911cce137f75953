package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/sales-pivot/internal/cli"
	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/config"
	"github.com/Veraticus/sales-pivot/internal/ingest"
	"github.com/Veraticus/sales-pivot/internal/service"
)

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage the barcode to category reference data",
		Long: `Load, inspect and query the reference database that maps product barcodes
to categories. Sales lines whose barcode is not in the reference data are
reported under the "Unknown" category.`,
	}

	cmd.AddCommand(loadReferenceCmd())
	cmd.AddCommand(lookupReferenceCmd())
	cmd.AddCommand(statsReferenceCmd())

	return cmd
}

func loadReferenceCmd() *cobra.Command {
	var (
		file  string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace the reference data from a spreadsheet",
		Long: `Read barcode and category columns from a spreadsheet and replace the whole
reference table with them. The sheet needs Barcode and Category headers, or
A and B. When a barcode appears twice its last category wins.`,
		Example: `  pivot reference load --file master_data.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return runReferenceLoad(cmd.Context(), cmd.OutOrStdout(), store, settings, file, quiet)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "reference workbook (xlsx)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show a progress bar")
	cmd.Flags().String("sheet", "", "sheet holding the reference data (default: first sheet)")
	_ = viper.BindPFlag(config.KeyReferenceSheet, cmd.Flags().Lookup("sheet"))

	return cmd
}

func runReferenceLoad(ctx context.Context, out io.Writer, store service.ReferenceStore, settings *config.Settings, file string, quiet bool) error {
	if err := requireFile(file, "reference workbook"); err != nil {
		return err
	}

	entries, err := ingest.ParseReferenceFile(file, settings.ReferenceOptions())
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read reference workbook %s", file), err)
	}
	if len(entries) == 0 {
		return common.NewUserError(fmt.Sprintf("%s holds no barcode entries; the reference data was left unchanged", file), nil)
	}

	var onProgress func()
	var progress *cli.LoadProgress
	if !quiet {
		progress = cli.NewLoadProgress(out, len(entries), "Loading reference data...")
		onProgress = progress.Step
	}

	if err := store.ReplaceCategories(ctx, sourceName(file), entries, onProgress); err != nil {
		return fmt.Errorf("failed to replace reference data: %w", err)
	}
	if progress != nil {
		progress.Finish()
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Loaded %d reference entries from %s", len(entries), sourceName(file)))) //nolint:forbidigo // User-facing output
	return nil
}

func lookupReferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>...",
		Short: "Show the category of one or more barcodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return runReferenceLookup(cmd.Context(), cmd.OutOrStdout(), store, args)
		},
	}
}

func runReferenceLookup(ctx context.Context, out io.Writer, store service.ReferenceStore, barcodes []string) error {
	missing := 0
	for _, barcode := range barcodes {
		category, ok, err := store.GetCategory(ctx, barcode)
		if err != nil {
			return fmt.Errorf("failed to look up %q: %w", barcode, err)
		}
		if !ok {
			missing++
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s: not in reference data", barcode))) //nolint:forbidigo // User-facing output
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", barcode, category) //nolint:forbidigo // User-facing output
	}

	if missing == len(barcodes) {
		return fmt.Errorf("%w: none of the barcodes are in the reference data", common.ErrNotFound)
	}
	return nil
}

func statsReferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the reference data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return runReferenceStats(cmd.Context(), cmd.OutOrStdout(), store, settings.DatabasePath)
		},
	}
}

func runReferenceStats(ctx context.Context, out io.Writer, store service.ReferenceStore, dbPath string) error {
	entries, err := store.GetCategoryEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read reference data: %w", err)
	}
	load, err := store.LatestLoad(ctx)
	if err != nil {
		return fmt.Errorf("failed to read load history: %w", err)
	}

	perCategory := make(map[string]int)
	var categories []string
	for _, e := range entries {
		if perCategory[e.Category] == 0 {
			categories = append(categories, e.Category)
		}
		perCategory[e.Category]++
	}

	lines := []string{
		fmt.Sprintf("Database:    %s", dbPath),
		fmt.Sprintf("Barcodes:    %d", len(entries)),
		fmt.Sprintf("Categories:  %d", len(categories)),
	}
	if load != nil {
		lines = append(lines, fmt.Sprintf("Last load:   %s from %s (%d entries)",
			load.LoadedAt.Local().Format("2006-01-02 15:04"), load.Source, load.EntryCount))
	} else {
		lines = append(lines, "Last load:   never")
	}

	if len(categories) > 0 {
		slices.Sort(categories)
		lines = append(lines, "")
		for _, c := range categories {
			lines = append(lines, fmt.Sprintf("  %-24s %d", c, perCategory[c]))
		}
	}

	fmt.Fprintln(out, cli.RenderBox(cli.FolderIcon+" Reference Data", strings.Join(lines, "\n"))) //nolint:forbidigo // User-facing output
	return nil
}
