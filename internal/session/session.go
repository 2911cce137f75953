// Package session holds the state shared by consecutive report runs: the cached reference
// mapping, the uploaded sales records and the last computed tables.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/ingest"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/pipeline"
	"github.com/Veraticus/sales-pivot/internal/service"
)

// Config holds the report settings applied to every run of a session.
type Config struct {
	CancelledStatus string
	Ingest          ingest.Options
	Pipeline        pipeline.Options
}

// Status describes what a session currently holds.
type Status struct {
	CreatedAt    time.Time        `json:"createdAt"`
	UploadedAt   time.Time        `json:"uploadedAt"`
	LastRange    *model.DateRange `json:"lastRange,omitempty"`
	ID           string           `json:"id"`
	Source       string           `json:"source,omitempty"`
	Marketplaces []string         `json:"marketplaces"`
	Records      int              `json:"records"`
	HasReport    bool             `json:"hasReport"`
}

// Session is created once per process and closed at shutdown. All methods are safe for
// concurrent use.
type Session struct {
	createdAt  time.Time
	uploadedAt time.Time
	store      service.ReferenceStore
	writer     service.ReportWriter
	logger     *slog.Logger
	lookup     model.CategoryLookup
	last       *model.ReportingTables
	id         string
	source     string
	records    []model.TransactionRecord
	config     Config
	mu         sync.RWMutex
	closed     bool
}

// New creates a session over a reference store and a report writer.
func New(store service.ReferenceStore, writer service.ReportWriter, config Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		createdAt: time.Now(),
		store:     store,
		writer:    writer,
		config:    config,
		logger:    logger.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Upload parses a sales export and replaces the session's records with it.
func (s *Session) Upload(r io.Reader, source string) (int, error) {
	records, err := ingest.ParseSalesExport(r, s.config.Ingest)
	if err != nil {
		return 0, err
	}
	if err := s.LoadRecords(source, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// LoadRecords replaces the session's records. The previously computed tables are discarded.
func (s *Session) LoadRecords(source string, records []model.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("session %s is closed", s.id)
	}

	s.records = slices.Clone(records)
	s.source = source
	s.uploadedAt = time.Now()
	s.last = nil

	s.logger.Info("loaded sales export", "source", source, "records", len(records))
	return nil
}

// InvalidateReference drops the cached category mapping so the next report reloads it.
func (s *Session) InvalidateReference() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookup = nil
}

// Marketplaces returns the distinct marketplaces of the loaded records, sorted.
func (s *Session) Marketplaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return marketplaces(s.records)
}

// DefaultRange returns the span from the earliest to the latest order date of the loaded
// records. The boolean is false when no record carries a date.
func (s *Session) DefaultRange() (model.DateRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dateSpan(s.records)
}

// Report runs the pipeline over the loaded records. A zero criteria range means the
// default range. The result is kept for Export.
func (s *Session) Report(ctx context.Context, criteria model.FilterCriteria) (*model.ReportingTables, error) {
	s.mu.RLock()
	records := s.records
	uploaded := s.uploadedAt
	s.mu.RUnlock()

	if len(records) == 0 {
		return nil, common.ErrNoUpload
	}

	lookup, err := s.referenceLookup(ctx)
	if err != nil {
		return nil, err
	}

	if criteria.Range.Start.IsZero() && criteria.Range.End.IsZero() {
		span, ok := dateSpan(records)
		if !ok {
			return nil, fmt.Errorf("%w: no record carries an order date", common.ErrInvalidRange)
		}
		criteria.Range = span
	}
	if criteria.CancelledStatus == "" {
		criteria.CancelledStatus = s.config.CancelledStatus
	}

	tables, err := pipeline.Run(records, lookup, criteria, s.config.Pipeline)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// A concurrent upload makes these tables stale; keep them out of the cache.
	if s.uploadedAt.Equal(uploaded) {
		s.last = tables
	}
	s.mu.Unlock()

	return tables, nil
}

// LastTables returns the tables computed by the most recent report on the current upload.
func (s *Session) LastTables() (*model.ReportingTables, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// Export writes the last computed tables to path without recomputing them. A failed export
// leaves the tables available for another attempt.
func (s *Session) Export(ctx context.Context, path string) error {
	tables, ok := s.LastTables()
	if !ok {
		return common.ErrNoReport
	}
	return s.writer.Write(ctx, path, tables)
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		UploadedAt:   s.uploadedAt,
		Source:       s.source,
		Records:      len(s.records),
		Marketplaces: marketplaces(s.records),
		HasReport:    s.last != nil,
	}
	if s.last != nil {
		r := s.last.Range
		status.LastRange = &r
	}
	return status
}

// Close releases the session state and closes the reference store.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.records = nil
	s.lookup = nil
	s.last = nil

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close reference store: %w", err)
	}
	return nil
}

// referenceLookup returns the cached mapping, loading it from the store on first use.
func (s *Session) referenceLookup(ctx context.Context) (model.CategoryLookup, error) {
	s.mu.RLock()
	lookup, closed := s.lookup, s.closed
	s.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("session %s is closed", s.id)
	}
	if lookup != nil {
		return lookup, nil
	}

	lookup, err := s.store.GetCategoryMapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference mapping: %w", err)
	}

	s.mu.Lock()
	s.lookup = lookup
	s.mu.Unlock()

	s.logger.Debug("cached reference mapping", "entries", len(lookup))
	return lookup, nil
}

func marketplaces(records []model.TransactionRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		if _, ok := seen[r.Marketplace]; ok {
			continue
		}
		seen[r.Marketplace] = struct{}{}
		out = append(out, r.Marketplace)
	}
	slices.Sort(out)
	return out
}

func dateSpan(records []model.TransactionRecord) (model.DateRange, bool) {
	var first, last time.Time
	found := false
	for _, r := range records {
		if r.OrderDate == nil {
			continue
		}
		if !found || r.OrderDate.Before(first) {
			first = *r.OrderDate
		}
		if !found || r.OrderDate.After(last) {
			last = *r.OrderDate
		}
		found = true
	}
	if !found {
		return model.DateRange{}, false
	}
	return model.NewDateRange(first, last), true
}
