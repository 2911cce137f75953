package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/report"
	"github.com/Veraticus/sales-pivot/internal/service"
	"github.com/Veraticus/sales-pivot/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the report API.
type Handler struct {
	session   *session.Session
	store     service.ReferenceStore
	writer    *report.ExcelWriter
	logger    *slog.Logger
	exportDir string
}

// NewHandler creates a handler over a session.
func NewHandler(sess *session.Session, store service.ReferenceStore, writer *report.ExcelWriter, exportDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:   sess,
		store:     store,
		writer:    writer,
		exportDir: exportDir,
		logger:    logger,
	}
}

// RegisterRoutes registers the API routes on router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)

	router.POST("/uploads", h.Upload)
	router.GET("/marketplaces", h.ListMarketplaces)

	router.GET("/report", h.GetReport)
	router.POST("/export", h.Export)

	router.GET("/reference/:barcode", h.LookupCategory)
	router.POST("/reference/reload", h.ReloadReference)
}

// StatusResponse describes the session and the reference store.
type StatusResponse struct {
	LastReferenceLoad *model.ReferenceLoad `json:"lastReferenceLoad,omitempty"`
	Session           session.Status       `json:"session"`
	ReferenceEntries  int                  `json:"referenceEntries"`
}

// GetStatus returns the session state.
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.store.CountCategories(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	load, err := h.store.LatestLoad(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Session:           h.session.Status(),
		ReferenceEntries:  count,
		LastReferenceLoad: load,
	})
}

// UploadResponse summarizes an accepted sales export.
type UploadResponse struct {
	Range        *model.DateRange `json:"range,omitempty"`
	Source       string           `json:"source"`
	Marketplaces []string         `json:"marketplaces"`
	Records      int              `json:"records"`
}

// Upload replaces the session's records with an uploaded sales export.
// POST /api/uploads (multipart field "file")
func (h *Handler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing upload field \"file\"")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	count, err := h.session.Upload(file, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := UploadResponse{
		Source:       header.Filename,
		Records:      count,
		Marketplaces: h.session.Marketplaces(),
	}
	if span, ok := h.session.DefaultRange(); ok {
		resp.Range = &span
	}
	c.JSON(http.StatusOK, resp)
}

// ListMarketplaces returns the marketplaces present in the uploaded records.
// GET /api/marketplaces
func (h *Handler) ListMarketplaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"marketplaces": h.session.Marketplaces()})
}

// GetReport computes the reporting tables.
// GET /api/report?start=YYYY-MM-DD&end=YYYY-MM-DD&marketplace=A&marketplace=B
func (h *Handler) GetReport(c *gin.Context) {
	criteria, err := h.criteria(c.Query("start"), c.Query("end"), c.QueryArray("marketplace"))
	if err != nil {
		respondError(c, err)
		return
	}

	tables, err := h.session.Report(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

// ExportRequest selects the tables to export and where to put them.
type ExportRequest struct {
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Path         string   `json:"path"`
	Marketplaces []string `json:"marketplaces"`
}

// Export writes the report workbook. With filter fields the report is computed first,
// otherwise the last computed tables are exported as they are. Without a path the workbook
// is returned in the response body.
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid export request: "+err.Error())
			return
		}
	}
	ctx := c.Request.Context()

	if req.Start != "" || req.End != "" || len(req.Marketplaces) > 0 {
		criteria, err := h.criteria(req.Start, req.End, req.Marketplaces)
		if err != nil {
			respondError(c, err)
			return
		}
		if _, err := h.session.Report(ctx, criteria); err != nil {
			respondError(c, err)
			return
		}
	}

	if req.Path == "" {
		h.download(c)
		return
	}

	path, err := h.exportPath(req.Path)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.session.Export(ctx, path); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "sheets": report.Sheets})
}

func (h *Handler) download(c *gin.Context) {
	tables, ok := h.session.LastTables()
	if !ok {
		respondError(c, common.ErrNoReport)
		return
	}

	var buf bytes.Buffer
	if err := h.writer.WriteTo(&buf, tables); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("pivot_table_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// LookupCategory returns the category of one barcode.
// GET /api/reference/:barcode
func (h *Handler) LookupCategory(c *gin.Context) {
	barcode := c.Param("barcode")
	category, ok, err := h.store.GetCategory(c.Request.Context(), barcode)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, fmt.Errorf("%w: barcode %q", common.ErrNotFound, barcode))
		return
	}
	c.JSON(http.StatusOK, model.CategoryEntry{Barcode: barcode, Category: category})
}

// ReloadResponse reports the reference data the next report will use.
type ReloadResponse struct {
	LastReferenceLoad *model.ReferenceLoad `json:"lastReferenceLoad,omitempty"`
	ReferenceEntries  int                  `json:"referenceEntries"`
}

// ReloadReference drops the session's cached category mapping so reports pick up a
// reference load made while the server was running.
// POST /api/reference/reload
func (h *Handler) ReloadReference(c *gin.Context) {
	ctx := c.Request.Context()

	h.session.InvalidateReference()

	count, err := h.store.CountCategories(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	load, err := h.store.LatestLoad(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("reference mapping invalidated", "entries", count)
	c.JSON(http.StatusOK, ReloadResponse{ReferenceEntries: count, LastReferenceLoad: load})
}

// criteria builds filter criteria from request values. A missing bound defaults to the
// matching end of the uploaded records' date span.
func (h *Handler) criteria(start, end string, marketplaces []string) (model.FilterCriteria, error) {
	criteria := model.FilterCriteria{Marketplaces: marketplaces}
	if start == "" && end == "" {
		return criteria, nil
	}

	span, ok := h.session.DefaultRange()
	if !ok && (start == "" || end == "") {
		return criteria, fmt.Errorf("%w: both start and end are required", common.ErrInvalidRange)
	}

	var err error
	if criteria.Range.Start, err = parseDay(start, span.Start); err != nil {
		return criteria, err
	}
	if criteria.Range.End, err = parseDay(end, span.End); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", common.ErrInvalidRange, value)
	}
	return t, nil
}

// exportPath confines server-side exports to the export directory.
func (h *Handler) exportPath(name string) (string, error) {
	if h.exportDir == "" {
		return "", errors.New("server-side export is disabled; omit path to download the workbook")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("export path %q must be a plain file name", name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	return filepath.Join(h.exportDir, name), nil
}
