package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/bootstrap"
	"github.com/turtacn/TreatyBoard/internal/config"
	httpserver "github.com/turtacn/TreatyBoard/internal/interfaces/http"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/handlers"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
	"github.com/turtacn/TreatyBoard/internal/testutil"
	"github.com/turtacn/TreatyBoard/pkg/client"
)

type stack struct {
	handler http.Handler
	logger  *testutil.MockLogger
}

// newStack wires a file-backed book behind a redis snapshot cache, the
// same way the API server does.
func newStack(t *testing.T) stack {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.NewDefaultConfig()
	cfg.Source.Kind = config.SourceFile
	cfg.Source.File = testutil.WriteBook(t, testutil.BookJSON)
	cfg.Cache.Backend = config.CacheRedis
	cfg.Redis.Addr = mr.Addr()

	logger := testutil.NewMockLogger()
	infra, err := bootstrap.New(context.Background(), cfg, logger, bootstrap.Options{})
	require.NoError(t, err)
	t.Cleanup(infra.Close)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ReportHandler: handlers.NewReportHandler(infra.Service, logger),
		HealthHandler: handlers.NewHealthHandler("e2e"),
		Logging:       middleware.DefaultLoggingConfig(),
		Logger:        logger,
		Mode:          "test",
	})
	return stack{handler: router, logger: logger}
}

func (s stack) do(t *testing.T, method, path, roles, body string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if roles != "" {
		r.Header.Set(middleware.HeaderUserRoles, roles)
	}
	s.handler.ServeHTTP(w, r)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestE2E_PoliciesByRole(t *testing.T) {
	s := newStack(t)

	var all handlers.PoliciesResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/policies", "admin", "", &all))
	assert.Equal(t, 5, all.Count)

	var fire handlers.PoliciesResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/policies", "FI", "", &fire))
	assert.Equal(t, 2, fire.Count)
	for _, p := range fire.Policies {
		assert.Equal(t, "FI", p.Class)
	}

	var none handlers.PoliciesResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/policies", "", "", &none))
	assert.Zero(t, none.Count)
}

func TestE2E_KPIsForYear(t *testing.T) {
	s := newStack(t)

	var body handlers.KPIResponse
	code := s.do(t, http.MethodGet, "/api/v1/kpis?year=2023", "fi", "", &body)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 1, body.KPIs.NumberOfAccounts)
	assert.Equal(t, "1000", body.KPIs.Premium.String())
	assert.Equal(t, "400", body.KPIs.IncurredClaims.String())
	assert.Equal(t, "40", body.KPIs.LossRatio.String())
	assert.Equal(t, "55", body.KPIs.CombinedRatio.String())
	assert.Equal(t, "$1,000.00", body.Display["premium"])
	assert.Equal(t, "40.00%", body.Display["loss_ratio"])
}

func TestE2E_BreakdownAndOptions(t *testing.T) {
	s := newStack(t)

	var br handlers.BreakdownResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/kpis/breakdown?dimension=class", "fi,marine", "", &br))
	assert.Equal(t, "class", br.Dimension)
	keys := make([]string, 0, len(br.Groups))
	for _, g := range br.Groups {
		keys = append(keys, g.Key)
	}
	assert.ElementsMatch(t, []string{"FI", "MARINE"}, keys)

	var opts struct {
		Classes []string `json:"classes"`
		Years   []int    `json:"years"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/filters/options", "marine", "", &opts))
	assert.Equal(t, []string{"MARINE"}, opts.Classes)
	assert.Equal(t, []int{2023}, opts.Years)
}

func TestE2E_InvalidFilter(t *testing.T) {
	s := newStack(t)

	var body handlers.ErrorResponse
	code := s.do(t, http.MethodGet, "/api/v1/kpis?year=abc", "admin", "", &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "QRY_001", body.Code)
}

func TestE2E_ReloadInvalidatesCache(t *testing.T) {
	s := newStack(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/policies", "admin", "", nil))
	s.logger.Clear()

	var body handlers.ReloadResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/cache/reload", "admin", "", &body))
	assert.Equal(t, 5, body.Records)

	assert.True(t, s.logger.HasMessage("info", "policy cache invalidated"))
	reason, ok := s.logger.Field("policy cache invalidated", "reason")
	require.True(t, ok)
	assert.Equal(t, "reload", reason)

	n, ok := s.logger.Field("policy book reloaded", "records")
	require.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestE2E_ClientRoundTrip(t *testing.T) {
	s := newStack(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	c, err := client.NewClient(srv.URL, client.WithRoles("fi"), client.WithRetryMax(0))
	require.NoError(t, err)
	ctx := context.Background()

	list, err := c.Reports().Policies(ctx, client.Filter{Year: 2024})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "3", list.Policies[0].SerialNumber)
	assert.Equal(t, 2024, list.Policies[0].Period.Year)

	rep, err := c.Reports().KPIs(ctx, client.Filter{Classes: []string{"FI"}})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.KPIs.NumberOfAccounts)
	assert.Equal(t, "1600", rep.KPIs.Premium.String())

	_, err = c.Reports().Breakdown(ctx, client.Filter{}, "colour")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsInvalidFilter())
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
