package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/sales-pivot/internal/certs"
	"github.com/Veraticus/sales-pivot/internal/cli"
	"github.com/Veraticus/sales-pivot/internal/config"
	"github.com/Veraticus/sales-pivot/internal/report"
	"github.com/Veraticus/sales-pivot/internal/server"
	"github.com/Veraticus/sales-pivot/internal/session"
)

func serveCmd() *cobra.Command {
	var (
		exportDir string
		devMode   bool
		useTLS    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report API over HTTP",
		Long: `Start a JSON API for uploading sales exports, computing reports and exporting
workbooks. The server keeps one session: every upload replaces the records of
the previous one.

  POST /api/uploads          multipart field "file"
  GET  /api/marketplaces
  GET  /api/report           ?start=&end=&marketplace=
  POST /api/export           {"start","end","marketplaces","path"}
  GET  /api/reference/:barcode
  POST /api/reference/reload  after "pivot reference load"
  GET  /api/status`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if exportDir == "" {
				if exportDir, err = os.Getwd(); err != nil {
					return fmt.Errorf("failed to resolve export directory: %w", err)
				}
			}

			var tlsConfig *tls.Config
			scheme := "http"
			if useTLS {
				if tlsConfig, err = certs.NewStore(settings.CertDir).TLSConfig(); err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				scheme = "https"
			}

			store, err := initStorage(cmd.Context(), settings)
			if err != nil {
				return err
			}

			logger := slog.Default()
			sess := session.New(store, report.NewExcelWriter(logger), settings.SessionConfig(), logger)
			defer func() {
				if err := sess.Close(); err != nil {
					slog.Warn("Failed to close session", "error", err)
				}
			}()

			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), "Server stopped.")

			srv := server.New(sess, store, server.Options{
				Addr:      settings.ServerAddr,
				ExportDir: config.ExpandPath(exportDir),
				DevMode:   devMode,
				TLS:       tlsConfig,
			}, logger)

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Listening on %s://%s (session %s)", scheme, settings.ServerAddr, sess.ID()))) //nolint:forbidigo // User-facing output
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: 127.0.0.1:8080)")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for server-side exports (default: working directory)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "run gin in debug mode")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "serve HTTPS with a self-signed localhost certificate")
	cmd.Flags().String("cert-dir", "", "directory holding the localhost certificate (default: ~/.config/pivot/certs)")
	_ = viper.BindPFlag(config.KeyServerCertDir, cmd.Flags().Lookup("cert-dir"))
	_ = viper.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))

	return cmd
}
