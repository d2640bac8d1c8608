package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsEngine(config CORSConfig) *gin.Engine {
	e := gin.New()
	e.Use(CORS(config))
	e.GET("/api/v1/kpis", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	e.OPTIONS("/api/v1/kpis", func(c *gin.Context) { c.String(http.StatusOK, "unreachable") })
	return e
}

func corsRequest(e *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, "/api/v1/kpis", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	e.ServeHTTP(w, r)
	return w
}

func TestCORS_PreflightRequest(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://board.example.com"}

	w := corsRequest(corsEngine(config), http.MethodOptions, "https://board.example.com")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://board.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserRoles)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Body.String())
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name     string
		origins  []string
		wildcard bool
		origin   string
		want     string
	}{
		{"exact", []string{"https://a.com", "https://b.com"}, false, "https://b.com", "https://b.com"},
		{"case insensitive", []string{"https://A.com"}, false, "https://a.com", "https://a.com"},
		{"disallowed", []string{"https://a.com"}, false, "https://evil.com", ""},
		{"any", []string{"*"}, false, "https://whatever.io", "*"},
		{"subdomain", []string{"*.example.com"}, true, "https://app.example.com", "https://app.example.com"},
		{"subdomain miss", []string{"*.example.com"}, true, "https://other.com", ""},
		{"pattern without wildcard flag", []string{"*.example.com"}, false, "https://app.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultCORSConfig()
			config.AllowedOrigins = tt.origins
			config.AllowWildcard = tt.wildcard

			w := corsRequest(corsEngine(config), http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}

	w := corsRequest(corsEngine(config), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Values("Vary"))
}

func TestCORS_WildcardWithCredentials(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}
	config.AllowCredentials = true

	w := corsRequest(corsEngine(config), http.MethodGet, "https://board.example.com")
	assert.Equal(t, "https://board.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExposedAndVaryHeaders(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://board.example.com"}

	w := corsRequest(corsEngine(config), http.MethodGet, "https://board.example.com")
	assert.Equal(t, HeaderRequestID, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestDefaultCORSConfig(t *testing.T) {
	config := DefaultCORSConfig()
	assert.Empty(t, config.AllowedOrigins)
	assert.False(t, config.AllowCredentials)
	assert.Contains(t, config.AllowedMethods, http.MethodPost)
	assert.Contains(t, config.AllowedHeaders, HeaderRequestID)
}
