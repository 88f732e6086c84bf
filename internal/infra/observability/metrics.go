package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the panel.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	renewals        *prometheus.CounterVec
	imported        prometheus.Counter
	customers       *prometheus.GaugeVec
	snapshotStale   prometheus.Gauge
	breakerState    *prometheus.GaugeVec
	jobRuns         *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "painel_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_http_requests_total",
				Help: "HTTP requests by route and status class.",
			},
			[]string{"method", "route", "class"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_backend_errors_total",
				Help: "Total errors from the persistence backend.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		renewals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_renewals_total",
				Help: "Renewals by outcome (ok, partial, error) and tier.",
			},
			[]string{"result", "servidor"},
		),
		imported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "painel_imported_customers_total",
				Help: "Customers created through CSV import.",
			},
		),
		customers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "painel_customers",
				Help: "Customers in the last snapshot by derived status.",
			},
			[]string{"status"},
		),
		snapshotStale: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "painel_snapshot_stale",
				Help: "1 when the last customer refresh failed.",
			},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "painel_circuit_breaker_state",
				Help: "0 closed, 1 half-open, 2 open.",
			},
			[]string{"name"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_job_runs_total",
				Help: "Background job runs by job and result.",
			},
			[]string{"job", "result"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordHTTPRequest counts a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
}

// IncrExternalError increments the backend error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRenewal counts a renewal attempt by outcome.
func (m *Metrics) IncrRenewal(result string, tier domain.Tier) {
	m.renewals.WithLabelValues(result, string(tier)).Inc()
}

// AddImported counts customers created by an import.
func (m *Metrics) AddImported(n int) {
	m.imported.Add(float64(n))
}

// SetSnapshot publishes the size and freshness of the customer snapshot.
func (m *Metrics) SetSnapshot(active, expired int, stale bool) {
	m.customers.WithLabelValues(string(domain.StatusAtivo)).Set(float64(active))
	m.customers.WithLabelValues(string(domain.StatusVencido)).Set(float64(expired))
	if stale {
		m.snapshotStale.Set(1)
	} else {
		m.snapshotStale.Set(0)
	}
}

// BreakerStateChanged matches gobreaker's OnStateChange signature.
func (m *Metrics) BreakerStateChanged(name string, _, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// IncrJobRun counts a background job run.
func (m *Metrics) IncrJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

// GetOpsSnapshot returns the counters behind GET /v1/ops/metrics.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	families := m.gather()

	total := sumCounter(families["painel_http_requests_total"], "", "")
	errors5xx := sumCounter(families["painel_http_requests_total"], "class", "5xx")
	hits := sumCounter(families["painel_cache_hits_total"], "", "")
	misses := sumCounter(families["painel_cache_misses_total"], "", "")

	errorRate, cacheHitRate := float64(0), float64(0)
	if total > 0 {
		errorRate = errors5xx / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.OpsMetrics{
		TotalRequests:     int64(total),
		ErrorRate:         errorRate,
		Renewals:          int64(sumCounter(families["painel_renewals_total"], "result", "ok")),
		ImportedCustomers: int64(counterValue(m.imported)),
		BackendErrors:     int64(sumCounter(families["painel_backend_errors_total"], "", "")),
		CacheHitRate:      cacheHitRate,
		SnapshotStale:     gaugeValue(m.snapshotStale) == 1,
	}
}

func (m *Metrics) gather() map[string]*dto.MetricFamily {
	out := make(map[string]*dto.MetricFamily)
	mfs, err := m.Registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

// sumCounter adds every series of a counter family, optionally only those
// carrying label=value.
func sumCounter(mf *dto.MetricFamily, label, value string) float64 {
	var sum float64
	for _, metric := range mf.GetMetric() {
		if label != "" && !hasLabel(metric, label, value) {
			continue
		}
		sum += metric.GetCounter().GetValue()
	}
	return sum
}

func hasLabel(metric *dto.Metric, label, value string) bool {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == label && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
