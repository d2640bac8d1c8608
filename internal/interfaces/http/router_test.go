package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/application/reporting"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/handlers"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
)

type staticSource []policy.Record

func (s staticSource) All(context.Context) ([]policy.Record, error)    { return s, nil }
func (s staticSource) Reload(context.Context) ([]policy.Record, error) { return s, nil }

func newTestRouter(t *testing.T) (http.Handler, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "treatyboard_test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewReportingMetrics(collector)

	src := staticSource{
		{SerialNumber: "1", Class: "FI", UnderwritingYear: "2023", GrossPremium: decimal.NewFromInt(100)},
		{SerialNumber: "2", Class: "MARINE", UnderwritingYear: "2023", GrossPremium: decimal.NewFromInt(50)},
	}
	svc := reporting.NewService(src, reporting.WithMetrics(metrics))
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = []string{"*"}

	return NewRouter(RouterConfig{
		ReportHandler:    handlers.NewReportHandler(svc, nil),
		HealthHandler:    handlers.NewHealthHandler("test"),
		CORS:             &cors,
		Logging:          middleware.DefaultLoggingConfig(),
		Metrics:          metrics,
		MetricsCollector: collector,
		Mode:             "test",
	}), collector
}

func get(h http.Handler, path, roles string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if roles != "" {
		r.Header.Set(middleware.HeaderUserRoles, roles)
	}
	h.ServeHTTP(w, r)
	return w
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, get(h, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(h, "/readyz", "").Code)
}

func TestNewRouter_RolesGateVisibility(t *testing.T) {
	h, _ := newTestRouter(t)

	w := get(h, "/api/v1/policies", "marine")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = get(h, "/api/v1/policies", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = get(h, "/api/v1/policies", "admin")
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestNewRouter_ReportRoutesRegistered(t *testing.T) {
	h, _ := newTestRouter(t)
	routes := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/policies", http.StatusOK},
		{http.MethodGet, "/api/v1/kpis", http.StatusOK},
		{http.MethodGet, "/api/v1/kpis/breakdown?dimension=class", http.StatusOK},
		{http.MethodGet, "/api/v1/renewals", http.StatusOK},
		{http.MethodGet, "/api/v1/filters/options", http.StatusOK},
		{http.MethodPost, "/api/v1/cache/reload", http.StatusOK},
		{http.MethodPost, "/api/v1/renewals/archive", http.StatusNotImplemented},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(rt.method, rt.path, nil)
			r.Header.Set(middleware.HeaderUserRoles, "admin")
			h.ServeHTTP(w, r)
			assert.Equal(t, rt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestNewRouter_Ask(t *testing.T) {
	h, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"text":"show me 2023"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set(middleware.HeaderUserRoles, "admin")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":2`)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	get(h, "/api/v1/kpis", "admin")

	w := get(h, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "treatyboard_test_http_requests_total")
	assert.Contains(t, body, `path="/api/v1/kpis"`)
	assert.Contains(t, body, "treatyboard_test_report_requests_total")
}

func TestNewRouter_NilHandlers(t *testing.T) {
	h := NewRouter(RouterConfig{Mode: "test"})
	assert.Equal(t, http.StatusNotFound, get(h, "/api/v1/kpis", "admin").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/healthz", "").Code)
}
