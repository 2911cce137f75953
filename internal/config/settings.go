package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/ingest"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/pipeline"
	"github.com/Veraticus/sales-pivot/internal/session"
)

// Configuration keys.
const (
	KeyDatabasePath    = "database.path"
	KeyCancelledStatus = "report.cancelled_status"
	KeyTopN            = "report.top_n"
	KeySubtotalDepth   = "report.pivot_subtotal_depth"
	KeyParallel        = "report.parallel"
	KeyVerify          = "report.verify"
	KeyVerbose         = "report.verbose"
	KeySalesSheet      = "ingest.sheet"
	KeyReferenceSheet  = "ingest.reference_sheet"
	KeyServerAddr      = "server.addr"
	KeyServerCertDir   = "server.cert_dir"
	KeyExportPath      = "export.path"
)

// Defaults.
const (
	DefaultDatabasePath = "~/.local/share/pivot/reference.db"
	DefaultServerAddr   = "127.0.0.1:8080"
	DefaultCertDir      = "~/.config/pivot/certs"
	DefaultExportPath   = "pivot_table.xlsx"
)

// Settings is the resolved application configuration.
type Settings struct {
	DatabasePath    string
	CancelledStatus string
	SalesSheet      string
	ReferenceSheet  string
	ServerAddr      string
	CertDir         string
	ExportPath      string
	TopN            int
	SubtotalDepth   int
	Parallel        bool
	Verify          bool
	Verbose         bool
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyCancelledStatus, model.DefaultCancelledStatus)
	v.SetDefault(KeyTopN, pipeline.DefaultTopN)
	v.SetDefault(KeySubtotalDepth, model.PivotKeyDepth-1)
	v.SetDefault(KeyParallel, false)
	v.SetDefault(KeyVerify, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyServerAddr, DefaultServerAddr)
	v.SetDefault(KeyServerCertDir, DefaultCertDir)
	v.SetDefault(KeyExportPath, DefaultExportPath)
}

// LoadSettings resolves settings from the global viper instance.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(viper.GetViper())
}

// LoadSettingsFrom resolves and validates settings from v.
// Values come from flags, PIVOT_ environment variables, the config file and defaults, in
// that order of precedence.
func LoadSettingsFrom(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := &Settings{
		DatabasePath:    ExpandPath(v.GetString(KeyDatabasePath)),
		CancelledStatus: v.GetString(KeyCancelledStatus),
		TopN:            v.GetInt(KeyTopN),
		SubtotalDepth:   v.GetInt(KeySubtotalDepth),
		Parallel:        v.GetBool(KeyParallel),
		Verify:          v.GetBool(KeyVerify),
		Verbose:         v.GetBool(KeyVerbose),
		SalesSheet:      v.GetString(KeySalesSheet),
		ReferenceSheet:  v.GetString(KeyReferenceSheet),
		ServerAddr:      v.GetString(KeyServerAddr),
		CertDir:         ExpandPath(v.GetString(KeyServerCertDir)),
		ExportPath:      ExpandPath(v.GetString(KeyExportPath)),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var problems []string
	if strings.TrimSpace(s.DatabasePath) == "" {
		problems = append(problems, KeyDatabasePath+" must not be empty")
	}
	if s.CancelledStatus == "" {
		problems = append(problems, KeyCancelledStatus+" must not be empty")
	}
	if s.TopN < 1 {
		problems = append(problems, fmt.Sprintf("%s must be at least 1, got %d", KeyTopN, s.TopN))
	}
	if s.SubtotalDepth < 0 || s.SubtotalDepth > model.PivotKeyDepth-1 {
		problems = append(problems, fmt.Sprintf("%s must be between 0 and %d, got %d",
			KeySubtotalDepth, model.PivotKeyDepth-1, s.SubtotalDepth))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// PipelineOptions returns the aggregation options implied by the settings.
func (s *Settings) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		TopN:          s.TopN,
		SubtotalDepth: s.SubtotalDepth,
		Parallel:      s.Parallel,
		Verify:        s.Verify,
		Verbose:       s.Verbose,
	}
}

// SalesOptions returns the ingestion options for sales exports.
func (s *Settings) SalesOptions() ingest.Options {
	return ingest.Options{Sheet: s.SalesSheet}
}

// ReferenceOptions returns the ingestion options for reference sheets.
func (s *Settings) ReferenceOptions() ingest.Options {
	return ingest.Options{Sheet: s.ReferenceSheet}
}

// SessionConfig returns the configuration of a report session.
func (s *Settings) SessionConfig() session.Config {
	return session.Config{
		CancelledStatus: s.CancelledStatus,
		Ingest:          s.SalesOptions(),
		Pipeline:        s.PipelineOptions(),
	}
}
