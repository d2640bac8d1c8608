package prometheus

import (
	"strconv"
	"time"
)

// Default buckets.
var (
	DefaultDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSourceLoadBuckets  = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultRecordCountBuckets = []float64{0, 10, 100, 500, 1000, 5000, 10000, 50000}
)

// ReportingMetrics holds every metric TreatyBoard records.
type ReportingMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Policy source
	SourceLoadsTotal   CounterVec
	SourceLoadDuration HistogramVec
	PoliciesLoaded     GaugeVec

	// Cache
	CacheHitsTotal          CounterVec
	CacheMissesTotal        CounterVec
	CacheInvalidationsTotal CounterVec

	// Reporting operations
	ReportRequestsTotal CounterVec
	ReportDuration      HistogramVec
	ReportRecordCount   HistogramVec
	RenewalsArchived    CounterVec
	EventsPublished     CounterVec

	ErrorsTotal CounterVec
}

// NewReportingMetrics registers all metrics on the collector.
func NewReportingMetrics(c MetricsCollector) *ReportingMetrics {
	m := &ReportingMetrics{}

	m.HTTPRequestsTotal = c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultDurationBuckets, "method", "path")
	m.HTTPActiveRequests = c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.SourceLoadsTotal = c.RegisterCounter("source_loads_total", "Policy source loads", "source", "result")
	m.SourceLoadDuration = c.RegisterHistogram("source_load_duration_seconds", "Policy source load duration", DefaultSourceLoadBuckets, "source")
	m.PoliciesLoaded = c.RegisterGauge("policies_loaded", "Policy records in the last successful load", "source")

	m.CacheHitsTotal = c.RegisterCounter("cache_hits_total", "Policy cache hits", "cache")
	m.CacheMissesTotal = c.RegisterCounter("cache_misses_total", "Policy cache misses", "cache")
	m.CacheInvalidationsTotal = c.RegisterCounter("cache_invalidations_total", "Policy cache invalidations", "reason")

	m.ReportRequestsTotal = c.RegisterCounter("report_requests_total", "Reporting operations", "operation", "result")
	m.ReportDuration = c.RegisterHistogram("report_duration_seconds", "Reporting operation duration", DefaultDurationBuckets, "operation")
	m.ReportRecordCount = c.RegisterHistogram("report_record_count", "Records visible to a reporting operation", DefaultRecordCountBuckets, "operation")
	m.RenewalsArchived = c.RegisterCounter("renewal_archives_total", "Renewal report archive attempts", "result")
	m.EventsPublished = c.RegisterCounter("events_published_total", "Events published to the message bus", "topic", "result")

	m.ErrorsTotal = c.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Helpers. All of them accept a nil *ReportingMetrics so callers can run
// without a collector.

func RecordHTTPRequest(m *ReportingMetrics, method, path string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func RecordSourceLoad(m *ReportingMetrics, source string, records int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.SourceLoadsTotal.WithLabelValues(source, result(err)).Inc()
	m.SourceLoadDuration.WithLabelValues(source).Observe(d.Seconds())
	if err == nil {
		m.PoliciesLoaded.WithLabelValues(source).Set(float64(records))
	}
}

func RecordCacheAccess(m *ReportingMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordCacheInvalidation(m *ReportingMetrics, reason string) {
	if m == nil {
		return
	}
	m.CacheInvalidationsTotal.WithLabelValues(reason).Inc()
}

func RecordReport(m *ReportingMetrics, operation string, records int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ReportRequestsTotal.WithLabelValues(operation, result(err)).Inc()
	m.ReportDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err == nil {
		m.ReportRecordCount.WithLabelValues(operation).Observe(float64(records))
	}
}

func RecordArchive(m *ReportingMetrics, err error) {
	if m == nil {
		return
	}
	m.RenewalsArchived.WithLabelValues(result(err)).Inc()
}

func RecordEventPublished(m *ReportingMetrics, topic string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic, result(err)).Inc()
}

func RecordError(m *ReportingMetrics, component, errorType, severity string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
