package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolcli/internal/analytics"
	"enrolcli/internal/dataset"
	apierrors "enrolcli/internal/errors"
	"enrolcli/internal/exporter"
	"enrolcli/internal/services"
)

type mockDashboardService struct {
	renderData  *services.DashboardData
	renderErr   error
	options     *services.Options
	optionsErr  error
	reloadRows  int
	reloadWarns []dataset.LoadWarning
	reloadErr   error

	lastSelection services.Selection
}

func (m *mockDashboardService) Render(ctx context.Context, sel services.Selection) (*services.DashboardData, error) {
	m.lastSelection = sel
	return m.renderData, m.renderErr
}

func (m *mockDashboardService) Options(ctx context.Context, level dataset.Level, state string) (*services.Options, error) {
	return m.options, m.optionsErr
}

func (m *mockDashboardService) Reload(ctx context.Context) (int, []dataset.LoadWarning, error) {
	return m.reloadRows, m.reloadWarns, m.reloadErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(svc DashboardServiceInterface) *DashboardHandler {
	logger := testLogger()
	dir := "/tmp"
	return NewDashboardHandler(svc, nil,
		exporter.NewCSVWriter(dir), exporter.NewExcelWriter(dir),
		logger, apierrors.NewErrorHandler(logger, false))
}

func sampleData() *services.DashboardData {
	return &services.DashboardData{
		Selection:           services.Selection{Level: dataset.LevelNational},
		GrandTotal:          40,
		GrandTotalFormatted: "40",
		MonthlyTotal: []analytics.MonthlyTotalRow{
			{Month: "2023-01", Registrations: 80},
		},
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetDashboard(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		service     *mockDashboardService
		wantStatus  int
		wantType    string
		wantEmpty   bool
		wantSuccess bool
	}{
		{
			name:        "national default level",
			target:      "/",
			service:     &mockDashboardService{renderData: sampleData()},
			wantStatus:  http.StatusOK,
			wantSuccess: true,
		},
		{
			name:        "explicit state selection",
			target:      "/?level=state&state=Kerala",
			service:     &mockDashboardService{renderData: sampleData()},
			wantStatus:  http.StatusOK,
			wantSuccess: true,
		},
		{
			name:       "invalid level rejected",
			target:     "/?level=galaxy",
			service:    &mockDashboardService{},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "missing state for state level",
			target:     "/?level=state",
			service:    &mockDashboardService{renderErr: services.ErrSelectionRequired},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeSelectionRequired,
		},
		{
			name:       "empty selection answers 200",
			target:     "/?level=state&state=Nowhere",
			service:    &mockDashboardService{renderErr: services.ErrEmptySelection},
			wantStatus: http.StatusOK,
			wantEmpty:  true,
		},
		{
			name:       "no data files",
			target:     "/",
			service:    &mockDashboardService{renderErr: services.ErrNoDataFound},
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeNoData,
		},
		{
			name:       "missing age columns",
			target:     "/",
			service:    &mockDashboardService{renderErr: services.ErrMissingColumns},
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeMissingColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newHandler(tt.service)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)

			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeJSON(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			}
			if tt.wantEmpty {
				assert.Equal(t, true, body["empty"])
			}
			if tt.wantSuccess {
				assert.Equal(t, "success", body["status"])
			}
		})
	}
}

func TestGetDashboard_PassesSelection(t *testing.T) {
	svc := &mockDashboardService{renderData: sampleData()}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?level=district&state=Kerala&district=Ernakulam", nil)
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.Selection{
		Level:    dataset.LevelDistrict,
		State:    "Kerala",
		District: "Ernakulam",
	}, svc.lastSelection)
}

func TestGetOptions(t *testing.T) {
	svc := &mockDashboardService{options: &services.Options{
		Levels: []string{"national", "state", "district"},
		States: []string{"Kerala"},
	}}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/options?level=state", nil)
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Kerala"}, data["states"])
}

func TestGetOptions_NoOptionsAvailable(t *testing.T) {
	svc := &mockDashboardService{optionsErr: services.ErrNoOptionsAvailable}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/options?level=state", nil)
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, apierrors.TypeNoOptionsAvailable, body["type"])
}

func TestExport_CSV(t *testing.T) {
	svc := &mockDashboardService{renderData: sampleData()}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export?format=csv", nil)
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "2023-01,80")
}

func TestExport_Excel(t *testing.T) {
	svc := &mockDashboardService{renderData: sampleData()}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export?format=xlsx", nil)
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx payload should be a zip archive")
}

func TestExport_InvalidFormat(t *testing.T) {
	handler := newHandler(&mockDashboardService{renderData: sampleData()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export?format=pdf", nil)
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReload(t *testing.T) {
	svc := &mockDashboardService{
		reloadRows: 120,
		reloadWarns: []dataset.LoadWarning{
			{File: "DF_ENROLMENT_BAD.csv", Err: assert.AnError},
		},
	}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/dataset/reload", nil)
	handler.Reload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(120), body["rows"])
	warnings := body["warnings"].([]interface{})
	require.Len(t, warnings, 1)
}

func TestReload_NoData(t *testing.T) {
	handler := newHandler(&mockDashboardService{reloadErr: services.ErrNoDataFound})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/dataset/reload", nil)
	handler.Reload(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
