package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"enrolcli/internal/infrastructure"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) (map[string]int64, map[string]uint64) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	histCounts := map[string]uint64{}
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			switch data := met.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[met.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histCounts[met.Name] += dp.Count
				}
			}
		}
	}
	return sums, histCounts
}

func TestMetrics_RecordsRequests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	m, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	}

	sums, histCounts := collectSums(t, reader)
	assert.Equal(t, int64(3), sums["http_requests_total"])
	assert.Equal(t, uint64(3), histCounts["http_request_duration_seconds"])

	// The in-flight gauge must return to zero once requests complete.
	assert.Equal(t, int64(0), sums["http_active_requests"])
}

func TestMetrics_NilInstrumentsPassThrough(t *testing.T) {
	handler := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
