package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/sales-pivot/internal/common"
	"github.com/Veraticus/sales-pivot/internal/model"
	"github.com/Veraticus/sales-pivot/internal/pipeline"
	"github.com/Veraticus/sales-pivot/internal/report"
	"github.com/Veraticus/sales-pivot/internal/session"
	"github.com/Veraticus/sales-pivot/internal/storage"
	"github.com/Veraticus/sales-pivot/internal/testutil"
)

type testServer struct {
	handler   http.Handler
	store     *storage.SQLiteStorage
	exportDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.SetupTestStore(t, testutil.ReferenceEntries())
	sess := session.New(store, report.NewExcelWriter(nil), session.Config{Pipeline: pipeline.DefaultOptions()}, nil)
	exportDir := t.TempDir()

	srv := New(sess, store, Options{ExportDir: exportDir, DevMode: true}, nil)
	return &testServer{handler: srv.Handler(), store: store, exportDir: exportDir}
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, field string, workbook io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "july.xlsx")
	require.NoError(t, err)
	_, err = io.Copy(part, workbook)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, "/api/uploads", &body, mw.FormDataContentType())
}

func (s *testServer) uploadExample(t *testing.T) {
	t.Helper()
	rec := s.upload(t, "file", testutil.Workbook(t, testutil.SalesHeader(), testutil.ExampleSalesRows()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func exportBody(t *testing.T, req ExportRequest) io.Reader {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, "file", testutil.Workbook(t, testutil.SalesHeader(), testutil.ExampleSalesRows()))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "july.xlsx", resp.Source)
	assert.Equal(t, 3, resp.Records)
	assert.Equal(t, []string{"MarketA", "MarketB"}, resp.Marketplaces)
	require.NotNil(t, resp.Range)
	assert.Equal(t, "2024-07-01 to 2024-07-02", resp.Range.String())

	rec = s.do(t, http.MethodGet, "/api/marketplaces", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marketplaces":["MarketA","MarketB"]}`, rec.Body.String())
}

func TestUpload_Rejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, "attachment", testutil.Workbook(t, testutil.SalesHeader(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(t, "file", testutil.Workbook(t, []any{"MarketPlace", "Barcode"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "missing required columns")

	rec = s.upload(t, "file", bytes.NewReader([]byte("not a workbook")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/report", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "report before upload")

	s.uploadExample(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantQty    float64
	}{
		{name: "default range", target: "/api/report", wantStatus: http.StatusOK, wantQty: 5},
		{name: "explicit range", target: "/api/report?start=2024-07-01&end=2024-07-31", wantStatus: http.StatusOK, wantQty: 5},
		{name: "open end", target: "/api/report?start=2024-07-02", wantStatus: http.StatusOK, wantQty: 0},
		{name: "marketplace filter", target: "/api/report?marketplace=MarketB", wantStatus: http.StatusOK, wantQty: 3},
		{name: "two marketplaces", target: "/api/report?marketplace=MarketA&marketplace=MarketB", wantStatus: http.StatusOK, wantQty: 5},
		{name: "reversed range", target: "/api/report?start=2024-08-01&end=2024-07-01", wantStatus: http.StatusBadRequest},
		{name: "malformed date", target: "/api/report?start=July&end=2024-07-31", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			tables := decode[model.ReportingTables](t, rec)
			assert.Equal(t, tt.wantQty, tables.GrandTotal().Quantity)
		})
	}
}

func TestGetReport_Tables(t *testing.T) {
	s := newTestServer(t)
	s.uploadExample(t)

	rec := s.do(t, http.MethodGet, "/api/report?start=2024-07-01&end=2024-07-31", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	tables := decode[model.ReportingTables](t, rec)
	assert.Equal(t, 40.0, tables.GrandTotal().TotalAmount)
	assert.Equal(t, []model.MarketplaceRow{
		{Marketplace: "MarketA", Quantity: 2, TotalAmount: 10},
		{Marketplace: "MarketB", Quantity: 3, TotalAmount: 30},
	}, tables.Marketplaces)
	require.Len(t, tables.TopProducts, 2)
	assert.Equal(t, "Gadget", tables.TopProducts[0].Product)
	require.Len(t, tables.DailyTrend, 1)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/export", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing to export yet")

	s.uploadExample(t)

	t.Run("computes and writes to the export directory", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/export", exportBody(t, ExportRequest{
			Start: "2024-07-01", End: "2024-07-31", Path: "july",
		}), "application/json")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		path := filepath.Join(s.exportDir, "july.xlsx")
		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, report.Sheets, f.GetSheetList())
	})

	t.Run("downloads the last tables", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/export", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, report.Sheets, f.GetSheetList())
	})

	t.Run("rejects paths outside the export directory", func(t *testing.T) {
		for _, path := range []string{"../escape.xlsx", "/tmp/escape.xlsx", "nested/out.xlsx"} {
			rec := s.do(t, http.MethodPost, "/api/export", exportBody(t, ExportRequest{Path: path}), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
		_, err := os.Stat(filepath.Join(filepath.Dir(s.exportDir), "escape.xlsx"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("invalid range", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/export", exportBody(t, ExportRequest{
			Start: "2024-08-01", End: "2024-07-01", Path: "bad.xlsx",
		}), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/export", bytes.NewReader([]byte("{")), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatusAndReference(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusResponse](t, rec)
	assert.Equal(t, 2, status.ReferenceEntries)
	assert.Equal(t, 0, status.Session.Records)
	assert.False(t, status.Session.HasReport)
	require.NotNil(t, status.LastReferenceLoad)
	assert.Equal(t, "testutil", status.LastReferenceLoad.Source)

	rec = s.do(t, http.MethodGet, "/api/reference/0001", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CategoryEntry{Barcode: "0001", Category: "Tools"}, decode[model.CategoryEntry](t, rec))

	rec = s.do(t, http.MethodGet, "/api/reference/1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadReference(t *testing.T) {
	s := newTestServer(t)
	s.uploadExample(t)
	ctx := context.Background()

	categories := func() []model.CategoryRow {
		t.Helper()
		rec := s.do(t, http.MethodGet, "/api/report?start=2024-07-01&end=2024-07-31", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[model.ReportingTables](t, rec).Categories
	}

	before := categories()
	require.NoError(t, s.store.ReplaceCategories(ctx, "master.xlsx", []model.CategoryEntry{
		{Barcode: "0001", Category: "Hardware"},
	}, nil))
	assert.Equal(t, before, categories(), "mapping stays cached until reloaded")

	rec := s.do(t, http.MethodPost, "/api/reference/reload", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reloaded := decode[ReloadResponse](t, rec)
	assert.Equal(t, 1, reloaded.ReferenceEntries)
	require.NotNil(t, reloaded.LastReferenceLoad)
	assert.Equal(t, "master.xlsx", reloaded.LastReferenceLoad.Source)

	assert.Equal(t, []model.CategoryRow{
		{Category: "Hardware", Quantity: 2, TotalAmount: 10},
		{Category: model.UnknownCategory, Quantity: 3, TotalAmount: 30},
	}, categories())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "invalid range", err: common.ErrInvalidRange, want: http.StatusBadRequest},
		{name: "ingestion", err: common.ErrIngestion, want: http.StatusBadRequest},
		{name: "no upload", err: common.ErrNoUpload, want: http.StatusConflict},
		{name: "no report", err: common.ErrNoReport, want: http.StatusConflict},
		{name: "not found", err: common.ErrNotFound, want: http.StatusNotFound},
		{name: "export", err: common.ErrExport, want: http.StatusInternalServerError},
		{name: "inconsistent", err: common.ErrInconsistentReport, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
