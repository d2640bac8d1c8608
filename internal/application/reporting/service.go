// Package reporting orchestrates the policy reporting core: the cached
// policy book is enriched, narrowed to what the caller's roles may see,
// filtered by the caller's selection and then aggregated.
package reporting

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/turtacn/TreatyBoard/internal/domain/access"
	"github.com/turtacn/TreatyBoard/internal/domain/kpi"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/domain/query"
	"github.com/turtacn/TreatyBoard/internal/domain/renewal"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Operation names used in logs and metrics.
const (
	OpPolicies        = "policies"
	OpKPIs            = "kpis"
	OpBreakdown       = "breakdown"
	OpRenewals        = "renewals"
	OpFilterOptions   = "filter_options"
	OpAsk             = "ask"
	OpReload          = "reload"
	OpArchiveRenewals = "archive_renewals"
)

// EventPublisher announces that the policy book changed.
type EventPublisher interface {
	PublishSourceChanged(ctx context.Context, payload kafka.SourceChangedPayload) (string, error)
}

// ReportArchiver stores renewal report snapshots and returns their key.
type ReportArchiver interface {
	Archive(ctx context.Context, report renewal.Report) (string, error)
}

// Request is the caller context shared by every read operation.
type Request struct {
	Roles []string   `json:"roles"`
	Spec  query.Spec `json:"spec"`
}

// AskResult is the answer to a free text question.
type AskResult struct {
	Interpretation query.Interpretation `json:"interpretation"`
	Records        int                  `json:"records"`
	KPIs           kpi.Set              `json:"kpis"`
}

// Service serves reports over a policy.Source.  It is safe for concurrent
// use once constructed.
type Service struct {
	source     policy.Source
	access     atomic.Pointer[access.Policy]
	classifier *renewal.Classifier
	publisher  EventPublisher
	archiver   ReportArchiver
	sourceName string
	currency   string
	logger     logging.Logger
	metrics    *prometheus.ReportingMetrics
}

type Option func(*Service)

// WithAccessPolicy replaces the built-in role to class table.
func WithAccessPolicy(p *access.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.access.Store(p)
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *prometheus.ReportingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher enables source change events on Reload.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithArchiver enables ArchiveRenewals.
func WithArchiver(a ReportArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock fixes the reference date used by the renewal classifier.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.classifier = renewal.NewClassifierAt(now) }
}

// WithSourceName labels published events.
func WithSourceName(name string) Option {
	return func(s *Service) { s.sourceName = name }
}

// WithCurrency sets the ISO 4217 code amounts are presented in.
func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = strings.ToUpper(code) }
}

// NewService creates a Service reading from source.
func NewService(source policy.Source, opts ...Option) *Service {
	s := &Service{
		source:     source,
		classifier: renewal.NewClassifier(),
		sourceName: "policies",
		currency:   "USD",
		logger:     logging.NewNopLogger(),
	}
	s.access.Store(access.NewPolicy(nil))
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("reporting")
	return s
}

// SetAccessPolicy swaps the role to class table.  Requests already past
// the visibility step keep the table they started with.
func (s *Service) SetAccessPolicy(p *access.Policy) {
	if p == nil {
		return
	}
	s.access.Store(p)
	s.logger.Info("visibility table replaced")
}

// Currency returns the presentation currency.
func (s *Service) Currency() string { return s.currency }

// visible loads the book and narrows it to what roles may see.
func (s *Service) visible(ctx context.Context, roles []string) ([]policy.Record, error) {
	records, err := s.source.All(ctx)
	if err != nil {
		return nil, sourceError(err)
	}
	return s.access.Load().Filter(policy.EnrichAll(records), roles), nil
}

func (s *Service) selected(ctx context.Context, req Request) ([]policy.Record, error) {
	records, err := s.visible(ctx, req.Roles)
	if err != nil {
		return nil, err
	}
	spec := req.Spec.WithClasses(records, req.Spec.Classes)
	return query.Apply(records, spec), nil
}

func (s *Service) observe(op string, records int, start time.Time, err error) {
	took := time.Since(start)
	prometheus.RecordReport(s.metrics, op, records, took, err)
	if err != nil {
		s.logger.Warn("report failed",
			logging.String("operation", op),
			logging.String("code", string(errors.GetCode(err))),
			logging.Err(err))
		return
	}
	s.logger.Debug("report served",
		logging.String("operation", op),
		logging.Int("records", records),
		logging.Duration("took", took))
}

// Policies returns the visible records matching req.Spec, in source order.
func (s *Service) Policies(ctx context.Context, req Request) (out []policy.Record, err error) {
	defer func(start time.Time) { s.observe(OpPolicies, len(out), start, err) }(time.Now())
	return s.selected(ctx, req)
}

// KPIs aggregates the visible records matching req.Spec.
func (s *Service) KPIs(ctx context.Context, req Request) (set kpi.Set, err error) {
	var n int
	defer func(start time.Time) { s.observe(OpKPIs, n, start, err) }(time.Now())

	records, err := s.selected(ctx, req)
	if err != nil {
		return kpi.Set{}, err
	}
	n = len(records)
	return kpi.Aggregate(records), nil
}

// Breakdown groups the selection by dimension, one KPI set per key.
func (s *Service) Breakdown(ctx context.Context, req Request, dimension string) (groups []kpi.Group, err error) {
	var n int
	defer func(start time.Time) { s.observe(OpBreakdown, n, start, err) }(time.Now())

	dim, ok := kpi.ParseDimension(dimension)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidDimension, "unknown breakdown dimension %q", dimension)
	}
	records, err := s.selected(ctx, req)
	if err != nil {
		return nil, err
	}
	n = len(records)
	return kpi.GroupBy(records, dim), nil
}

// Renewals classifies the selection by renewal status.
func (s *Service) Renewals(ctx context.Context, req Request) (report renewal.Report, err error) {
	var n int
	defer func(start time.Time) { s.observe(OpRenewals, n, start, err) }(time.Now())

	records, err := s.selected(ctx, req)
	if err != nil {
		return renewal.Report{}, err
	}
	n = len(records)
	return s.classifier.Classify(records), nil
}

// FilterOptions lists the option domains over the records roles may see.
// The subclass domain follows classes.
func (s *Service) FilterOptions(ctx context.Context, roles []string, classes []string) (opts query.Options, err error) {
	var n int
	defer func(start time.Time) { s.observe(OpFilterOptions, n, start, err) }(time.Now())

	records, err := s.visible(ctx, roles)
	if err != nil {
		return query.Options{}, err
	}
	n = len(records)
	return query.CollectOptions(records, classes), nil
}

// Ask interprets text against the option domains visible to roles and
// aggregates the resulting selection.
func (s *Service) Ask(ctx context.Context, roles []string, text string) (res AskResult, err error) {
	defer func(start time.Time) { s.observe(OpAsk, res.Records, start, err) }(time.Now())

	if strings.TrimSpace(text) == "" {
		return AskResult{}, errors.New(errors.ErrCodeEmptyQuestion, "question text is empty")
	}
	records, err := s.visible(ctx, roles)
	if err != nil {
		return AskResult{}, err
	}

	interp := query.NewInterpreter(query.CollectOptions(records, nil)).Interpret(text)
	spec := interp.Spec.InferClasses(records)
	interp.Spec = spec.WithClasses(records, spec.Classes)
	selected := query.Apply(records, interp.Spec)
	s.logger.Debug("question interpreted",
		logging.Int("matches", len(interp.Matches)),
		logging.Strings("unmatched", interp.Unmatched))

	return AskResult{
		Interpretation: interp,
		Records:        len(selected),
		KPIs:           kpi.Aggregate(selected),
	}, nil
}

// Reload bypasses the cache and returns the number of records loaded.  When
// a publisher is configured the other replicas are told to drop their
// snapshot.  A failed publish is logged; the local reload still counts.
func (s *Service) Reload(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { s.observe(OpReload, n, start, err) }(time.Now())

	records, err := s.source.Reload(ctx)
	if err != nil {
		return 0, sourceError(err)
	}
	n = len(records)
	s.logger.Info("policy book reloaded", logging.Int("records", n))

	if s.publisher == nil {
		return n, nil
	}
	id, perr := s.publisher.PublishSourceChanged(ctx, kafka.SourceChangedPayload{
		Source:    s.sourceName,
		Reason:    OpReload,
		Records:   n,
		ChangedAt: time.Now().UTC(),
	})
	if perr != nil {
		s.logger.Warn("source change event not published", logging.Err(perr))
		return n, nil
	}
	s.logger.Debug("source change event published", logging.String("event_id", id))
	return n, nil
}

// ArchiveRenewals stores the renewal report for req and returns its key.
func (s *Service) ArchiveRenewals(ctx context.Context, req Request) (key string, err error) {
	if s.archiver == nil {
		return "", errors.New(errors.ErrCodeArchiveNotConfigured, "renewal archive is not configured")
	}
	report, err := s.Renewals(ctx, req)
	if err != nil {
		return "", err
	}

	defer func(start time.Time) { s.observe(OpArchiveRenewals, len(report.Records), start, err) }(time.Now())
	key, err = s.archiver.Archive(ctx, report)
	if err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			err = errors.Wrap(err, errors.ErrCodeArchiveFailed, "archive renewal report")
		}
		return "", err
	}
	s.logger.Info("renewal report archived", logging.String("key", key), logging.Int("records", len(report.Records)))
	return key, nil
}

// sourceError keeps coded errors and tags everything else as an
// unavailable source.
func sourceError(err error) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "load policy records")
}
