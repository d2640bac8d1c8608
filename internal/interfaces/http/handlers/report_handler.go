package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/TreatyBoard/internal/application/reporting"
	"github.com/turtacn/TreatyBoard/internal/domain/kpi"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/domain/query"
	"github.com/turtacn/TreatyBoard/internal/domain/renewal"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// ReportService is the reporting surface served over HTTP.
type ReportService interface {
	Policies(ctx context.Context, req reporting.Request) ([]policy.Record, error)
	KPIs(ctx context.Context, req reporting.Request) (kpi.Set, error)
	Breakdown(ctx context.Context, req reporting.Request, dimension string) ([]kpi.Group, error)
	Renewals(ctx context.Context, req reporting.Request) (renewal.Report, error)
	FilterOptions(ctx context.Context, roles []string, classes []string) (query.Options, error)
	Ask(ctx context.Context, roles []string, text string) (reporting.AskResult, error)
	Reload(ctx context.Context) (int, error)
	ArchiveRenewals(ctx context.Context, req reporting.Request) (string, error)
	Currency() string
}

var _ ReportService = (*reporting.Service)(nil)

// ReportHandler serves the /api/v1 reporting endpoints.
type ReportHandler struct {
	svc    ReportService
	logger logging.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc ReportService, logger logging.Logger) *ReportHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReportHandler{svc: svc, logger: logger.Named("http")}
}

// PoliciesResponse is the body of GET /policies.
type PoliciesResponse struct {
	Count    int             `json:"count"`
	Policies []policy.Record `json:"policies"`
}

// KPIResponse is the body of GET /kpis.  Display holds the same figures
// formatted for presentation.
type KPIResponse struct {
	KPIs     kpi.Set           `json:"kpis"`
	Currency string            `json:"currency"`
	Display  map[string]string `json:"display"`
}

// BreakdownResponse is the body of GET /kpis/breakdown.
type BreakdownResponse struct {
	Dimension string      `json:"dimension"`
	Groups    []kpi.Group `json:"groups"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Text string `json:"text"`
}

// ReloadResponse is the body of POST /cache/reload.
type ReloadResponse struct {
	Records int `json:"records"`
}

// ArchiveResponse is the body of POST /renewals/archive.
type ArchiveResponse struct {
	Key string `json:"key"`
}

func (h *ReportHandler) request(c *gin.Context) (reporting.Request, bool) {
	spec, err := ParseSpec(c.Request.URL.Query())
	if err != nil {
		writeError(c, h.logger, err)
		return reporting.Request{}, false
	}
	return reporting.Request{Roles: middleware.GetRoles(c), Spec: spec}, true
}

// ListPolicies handles GET /policies.
func (h *ReportHandler) ListPolicies(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	records, err := h.svc.Policies(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PoliciesResponse{Count: len(records), Policies: records})
}

// GetKPIs handles GET /kpis.
func (h *ReportHandler) GetKPIs(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	set, err := h.svc.KPIs(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	currency := h.svc.Currency()
	c.JSON(http.StatusOK, KPIResponse{KPIs: set, Currency: currency, Display: DisplayKPIs(set, currency)})
}

// GetBreakdown handles GET /kpis/breakdown?dimension=….
func (h *ReportHandler) GetBreakdown(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	dim := c.DefaultQuery(ParamDimension, string(kpi.ByYear))
	groups, err := h.svc.Breakdown(c.Request.Context(), req, dim)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, BreakdownResponse{Dimension: dim, Groups: groups})
}

// GetRenewals handles GET /renewals.
func (h *ReportHandler) GetRenewals(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	report, err := h.svc.Renewals(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetFilterOptions handles GET /filters/options?class=….
func (h *ReportHandler) GetFilterOptions(c *gin.Context) {
	classes := multi(c.Request.URL.Query(), ParamClass)
	opts, err := h.svc.FilterOptions(c.Request.Context(), middleware.GetRoles(c), classes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// Ask handles POST /ask.
func (h *ReportHandler) Ask(c *gin.Context) {
	var body AskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}
	res, err := h.svc.Ask(c.Request.Context(), middleware.GetRoles(c), body.Text)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reload handles POST /cache/reload.
func (h *ReportHandler) Reload(c *gin.Context) {
	n, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ReloadResponse{Records: n})
}

// ArchiveRenewals handles POST /renewals/archive.  The selection is read
// from the same filter parameters as GET /renewals.
func (h *ReportHandler) ArchiveRenewals(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	key, err := h.svc.ArchiveRenewals(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ArchiveResponse{Key: key})
}

// DisplayKPIs formats a KPI set: amounts in currency, ratios as percents.
func DisplayKPIs(s kpi.Set, currency string) map[string]string {
	return map[string]string{
		"premium":            kpi.FormatMoney(s.Premium, currency),
		"paid_claims":        kpi.FormatMoney(s.PaidClaims, currency),
		"outstanding_claims": kpi.FormatMoney(s.OutstandingClaims, currency),
		"incurred_claims":    kpi.FormatMoney(s.IncurredClaims, currency),
		"expense":            kpi.FormatMoney(s.Expense, currency),
		"avg_max_liability":  kpi.FormatMoney(s.AvgMaxLiability, currency),
		"loss_ratio":         kpi.FormatPercent(s.LossRatio),
		"expense_ratio":      kpi.FormatPercent(s.ExpenseRatio),
		"combined_ratio":     kpi.FormatPercent(s.CombinedRatio),
	}
}
