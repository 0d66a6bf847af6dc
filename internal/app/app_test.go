package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolcli/internal/infrastructure"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	infrastructure.ResetLoggerForTesting()

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "DF_ENROLMENT_TEST.csv"),
		[]byte("date,state,district,age_0_5,age_5_17,age_18_greater\n2023-01-05,A,X,10,20,30\n"),
		0644))

	t.Setenv("ENROL_PATHS_DATA_DIR", dataDir)
	t.Setenv("ENROL_PATHS_EXPORTS_DIR", filepath.Join(root, "exports"))
	t.Setenv("ENROL_PATHS_LOGS_DIR", filepath.Join(root, "logs"))
	t.Setenv("ENROL_LOGGING_OUTPUT", "console")
	t.Setenv("ENROL_CONFIG_FILE", filepath.Join(root, "missing.yaml"))

	app, err := NewApplication()
	require.NoError(t, err)
	t.Cleanup(app.WebSocketHub.Stop)
	return app
}

func TestNewApplication_RoutesWired(t *testing.T) {
	app := newTestApplication(t)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"liveness", http.MethodGet, "/api/health/live", http.StatusOK},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
		{"dashboard national", http.MethodGet, "/api/dashboard", http.StatusOK},
		{"dashboard options", http.MethodGet, "/api/dashboard/options?level=state", http.StatusOK},
		{"dashboard export", http.MethodGet, "/api/dashboard/export?format=csv", http.StatusOK},
		{"dataset reload", http.MethodPost, "/api/dataset/reload", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.target, nil)
			app.Router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestNewApplication_UnknownAPIRouteProblem(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	req.Header.Set("X-Request-ID", "req-404")
	app.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/errors/not-found"`)
	assert.Contains(t, rec.Body.String(), `"req-404"`)
}

func TestNewApplication_SelectionFlow(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?level=state&state=A", nil)
	app.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grand_total"`)
}

func TestNewApplication_SecurityHeaders(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
