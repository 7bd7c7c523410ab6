package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of Prometheus collectors a run publishes to, grounded
// on the teacher's MetricsCollector pattern (internal/observability) but
// re-targeted from HTTP request metrics to ETL run metrics: step timing,
// row counts, resolver layer hits, and loader batches.
type Metrics struct {
	registry prometheus.Registerer

	StepDuration   *prometheus.HistogramVec
	StepRows       *prometheus.CounterVec
	ResolverHits   *prometheus.CounterVec
	LoaderBatches  *prometheus.CounterVec
	RetryAttempts  *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
}

// NewMetrics registers the standard WorkDataHub collectors against reg. A
// nil reg registers against prometheus.DefaultRegisterer, matching the
// teacher's NewMetricsCollector default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		registry: reg,
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "workdatahub_step_duration_seconds",
			Help: "Duration of one pipeline step execution.",
		}, []string{"domain", "step"}),
		StepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdatahub_step_rows_total",
			Help: "Rows observed per pipeline step, labeled by outcome.",
		}, []string{"domain", "step", "outcome"}),
		ResolverHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdatahub_resolver_hits_total",
			Help: "Company enrichment resolutions, labeled by source layer.",
		}, []string{"domain", "source"}),
		LoaderBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdatahub_loader_batches_total",
			Help: "Warehouse loader batches executed, labeled by mode.",
		}, []string{"domain", "mode"}),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdatahub_retry_attempts_total",
			Help: "Retry attempts made by the pipeline framework, labeled by tier.",
		}, []string{"tier", "outcome"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdatahub_runs_total",
			Help: "Completed orchestrator runs, labeled by domain and terminal status.",
		}, []string{"domain", "status"}),
	}
	reg.MustRegister(m.StepDuration, m.StepRows, m.ResolverHits, m.LoaderBatches, m.RetryAttempts, m.RunsTotal)
	return m
}

// NewTestMetrics builds a Metrics instance against a private registry, safe
// to construct more than once within a test process.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
