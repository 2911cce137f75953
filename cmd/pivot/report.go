package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/sales-pivot/internal/cli"
	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/config"
	"github.com/Veraticus/sales-pivot/internal/ingest"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/report"
	"github.com/Veraticus/sales-pivot/internal/session"
)

// reportRequest holds the per-run report flags.
type reportRequest struct {
	file         string
	start        string
	end          string
	format       string
	exportPath   string
	marketplaces []string
	export       bool
}

func reportCmd() *cobra.Command {
	var req reportRequest

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build pivot reports from a sales export",
		Long: `Read a marketplace sales export, enrich every line with its category from
the reference database and print the reporting tables.

Without --start and --end the report covers every order date in the file.
Orders whose status equals the cancelled marker (default CANCELLED) are
excluded. Use --export to also write the workbook.`,
		Example: `  pivot report --file sales.xlsx
  pivot report --file sales.xlsx --start 2024-07-01 --end 2024-07-31 -m Amazon -m Etsy
  pivot report --file sales.xlsx --export --output july.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if req.exportPath == "" {
				req.exportPath = settings.ExportPath
			} else {
				req.exportPath = config.ExpandPath(req.exportPath)
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), settings, req)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&req.file, "file", "f", "", "sales export workbook (xlsx)")
	cmd.Flags().StringVar(&req.start, "start", "", "first day of the report (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.end, "end", "", "last day of the report (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&req.marketplaces, "marketplace", "m", nil, "marketplace to include (repeatable; default all)")
	cmd.Flags().StringVar(&req.format, "format", "table", "output format (table, json, none)")
	cmd.Flags().BoolVar(&req.export, "export", false, "write the report workbook")
	cmd.Flags().StringVarP(&req.exportPath, "output", "o", "", "workbook path for --export (default: export.path)")
	cmd.Flags().String("sheet", "", "sheet holding the sales lines (default: first sheet)")
	cmd.Flags().String("cancelled-status", "", "order status excluded from the report (default: CANCELLED)")
	cmd.Flags().Int("top", 0, "rows in the top products table (default: 10)")
	cmd.Flags().Int("subtotal-depth", 0, "pivot key levels that get subtotal rows, 0-4 (default: 4)")
	cmd.Flags().Bool("parallel", false, "compute the tables concurrently")
	cmd.Flags().Bool("verify", false, "check cross-table consistency before printing")
	cmd.Flags().BoolP("verbose", "v", false, "log row counts after every pipeline stage")

	// Bind to viper
	_ = viper.BindPFlag(config.KeySalesSheet, cmd.Flags().Lookup("sheet"))
	_ = viper.BindPFlag(config.KeyCancelledStatus, cmd.Flags().Lookup("cancelled-status"))
	_ = viper.BindPFlag(config.KeyTopN, cmd.Flags().Lookup("top"))
	_ = viper.BindPFlag(config.KeySubtotalDepth, cmd.Flags().Lookup("subtotal-depth"))
	_ = viper.BindPFlag(config.KeyParallel, cmd.Flags().Lookup("parallel"))
	_ = viper.BindPFlag(config.KeyVerify, cmd.Flags().Lookup("verify"))
	_ = viper.BindPFlag(config.KeyVerbose, cmd.Flags().Lookup("verbose"))

	return cmd
}

func runReport(ctx context.Context, out io.Writer, settings *config.Settings, req reportRequest) error {
	if err := requireFile(req.file, "sales export"); err != nil {
		return err
	}
	criteria, err := parseCriteria(req.start, req.end, req.marketplaces)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	sess := session.New(store, report.NewExcelWriter(slog.Default()), settings.SessionConfig(), slog.Default())
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Warn("Failed to close session", "error", err)
		}
	}()

	records, err := ingest.ParseSalesFile(req.file, settings.SalesOptions())
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read sales export %s", req.file), err)
	}
	if err := sess.LoadRecords(sourceName(req.file), records); err != nil {
		return err
	}

	tables, err := sess.Report(ctx, criteria)
	if err != nil {
		return reportError(err)
	}

	if err := printTables(out, req.format, tables); err != nil {
		return err
	}

	if req.export {
		if err := sess.Export(ctx, req.exportPath); err != nil {
			return common.NewUserError(fmt.Sprintf("Could not write %s", req.exportPath), err)
		}
		if req.format == "table" {
			fmt.Fprintln(out, cli.FormatSuccess("Report written to "+req.exportPath)) //nolint:forbidigo // User-facing output
		}
	}

	return nil
}

// parseCriteria builds the report filter. Leaving both dates empty selects the whole file.
func parseCriteria(start, end string, marketplaces []string) (model.FilterCriteria, error) {
	criteria := model.FilterCriteria{Marketplaces: marketplaces}
	if start == "" && end == "" {
		return criteria, nil
	}
	if start == "" || end == "" {
		return criteria, common.NewUserError("Pass both --start and --end, or neither", common.ErrInvalidRange)
	}

	r, err := model.ParseDateRange(start, end)
	if err != nil {
		return criteria, common.NewUserError("Dates must look like 2024-07-31", fmt.Errorf("%w: %w", common.ErrInvalidRange, err))
	}
	criteria.Range = r
	return criteria, nil
}

func reportError(err error) error {
	switch {
	case common.IsFatalToRun(err):
		return common.NewUserError("Cannot build the report", err)
	default:
		return err
	}
}

func printTables(out io.Writer, format string, tables *model.ReportingTables) error {
	switch format {
	case "table", "":
		fmt.Fprintln(out, cli.RenderReport(tables)) //nolint:forbidigo // User-facing output
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case "none":
	default:
		return common.NewUserError(fmt.Sprintf("Unknown output format %q (use table, json or none)", format), common.ErrInvalidConfig)
	}
	return nil
}
