// Package metrics exports Prometheus metrics for scrape runs.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-jobboard-scraper/internal/scraper"
)

const namespace = "jobscraper"

// Metrics holds the scraper's collectors. It implements scraper.Observer.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Record metrics
	JobsScraped    prometheus.Counter
	JobsRejected   *prometheus.CounterVec
	CardsFailed    prometheus.Counter
	LoadMoreRounds prometheus.Counter
	JobsPersisted  *prometheus.CounterVec
	RunInProgress  prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ scraper.Observer = (*Metrics)(nil)

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{gatherer: reg}
	m.RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Scrape runs by outcome (success, partial, failed) and phase",
	}, []string{"outcome", "phase"})

	m.RunDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a scrape run",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	m.JobsScraped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_scraped_total",
		Help:      "Validated job records returned to callers",
	})

	m.JobsRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_rejected_total",
		Help:      "Extracted records discarded by validation",
	}, []string{"reason"})

	m.CardsFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cards_failed_total",
		Help:      "Job cards whose detail view could not be read",
	})

	m.LoadMoreRounds = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "load_more_rounds_total",
		Help:      "Requests for more results (button clicks or scrolls)",
	})

	m.JobsPersisted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_persisted_total",
		Help:      "Jobs written to the sink by operation (inserted, updated)",
	}, []string{"op"})

	m.RunInProgress = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_in_progress",
		Help:      "1 while a scrape run is executing",
	})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RunStarted() { m.RunInProgress.Set(1) }

func (m *Metrics) RunFinished(stats scraper.Stats, err error) {
	m.RunInProgress.Set(0)
	m.RunDuration.Observe(stats.Duration.Seconds())
	m.JobsScraped.Add(float64(stats.Extracted - stats.Rejected))
	m.CardsFailed.Add(float64(stats.Failed))
	m.LoadMoreRounds.Add(float64(stats.LoadMoreAttempts))

	var runErr *scraper.RunError
	switch {
	case err == nil:
		m.RunsTotal.WithLabelValues("success", scraper.Draining.String()).Inc()
	case errors.As(err, &runErr) && runErr.NothingScraped():
		m.RunsTotal.WithLabelValues("failed", runErr.Phase.String()).Inc()
	case errors.As(err, &runErr):
		m.RunsTotal.WithLabelValues("partial", runErr.Phase.String()).Inc()
	default:
		m.RunsTotal.WithLabelValues("failed", "unknown").Inc()
	}
}

func (m *Metrics) RecordRejected(reason string) {
	m.JobsRejected.WithLabelValues(reason).Inc()
}

// RecordPersisted counts a sink write.
func (m *Metrics) RecordPersisted(inserted, updated int) {
	m.JobsPersisted.WithLabelValues("inserted").Add(float64(inserted))
	m.JobsPersisted.WithLabelValues("updated").Add(float64(updated))
}
