package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/handlers"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	// Handlers
	ReportHandler *handlers.ReportHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.ReportingMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string

	// Mode is the gin mode: debug, release or test.
	Mode string
}

// NewRouter builds the route tree.  Probes and the metrics endpoint sit
// outside /api/v1 and carry no roles.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(cfg.Logger.Named("access"), cfg.Metrics, cfg.Logging))
	r.Use(middleware.Recovery(cfg.Logger, cfg.Metrics))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1", middleware.Roles())
	registerReportRoutes(api, cfg.ReportHandler)
	return r
}

// registerReportRoutes mounts the reporting endpoints.
func registerReportRoutes(r *gin.RouterGroup, h *handlers.ReportHandler) {
	if h == nil {
		return
	}
	r.GET("/policies", h.ListPolicies)
	r.GET("/kpis", h.GetKPIs)
	r.GET("/kpis/breakdown", h.GetBreakdown)
	r.GET("/renewals", h.GetRenewals)
	r.POST("/renewals/archive", h.ArchiveRenewals)
	r.GET("/filters/options", h.GetFilterOptions)
	r.POST("/ask", h.Ask)
	r.POST("/cache/reload", h.Reload)
}
