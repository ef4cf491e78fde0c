package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probegate/probegate/internal/domain"
)

// Collector owns the engine's Prometheus metrics on a private registry so
// tests and multiple servers never fight over global state.
type Collector struct {
	registry *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	runsTotal     *prometheus.CounterVec
	activeRuns    prometheus.Gauge
}

func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probegate_probes_total",
			Help: "Probes settled, by result class",
		},
		[]string{"result"},
	)
	c.probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "probegate_probe_duration_seconds",
			Help:    "Wall-clock time from dispatch to settle per probe",
			Buckets: prometheus.DefBuckets,
		},
	)
	c.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probegate_runs_total",
			Help: "Finished runs, by verdict",
		},
		[]string{"verdict"},
	)
	c.activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "probegate_active_runs",
			Help: "Runs currently executing",
		},
	)

	c.registry.MustRegister(c.probesTotal, c.probeDuration, c.runsTotal, c.activeRuns)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RunStarted() { c.activeRuns.Inc() }

func (c *Collector) ObserveOutcome(o domain.Outcome) {
	c.probesTotal.WithLabelValues(resultClass(o)).Inc()
	c.probeDuration.Observe(o.ElapsedMS / 1000)
}

func (c *Collector) ObserveRun(r *domain.RunReport) {
	c.activeRuns.Dec()
	c.runsTotal.WithLabelValues(string(r.Verdict)).Inc()
}

// resultClass folds an Outcome's classification message into a low-cardinality
// label value.
func resultClass(o domain.Outcome) string {
	switch {
	case o.Passed:
		return "ok"
	case o.Message == "timeout":
		return "timeout"
	case o.Message == "cancelled":
		return "cancelled"
	case o.Message == "network error":
		return "network_error"
	case strings.HasPrefix(o.Message, "status mismatch"):
		return "status_mismatch"
	case strings.HasPrefix(o.Message, "slow response"):
		return "slow_response"
	default:
		return "other"
	}
}
