package assist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for assisted region requests.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	completionsTotal *prometheus.CounterVec
	pollsTotal       prometheus.Counter
	openRequests     prometheus.Gauge
}

// NewMetrics creates and registers assisted region metrics.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assist_requests_total",
				Help: "Total number of assisted region requests",
			},
			[]string{"status"}, // status: sent, failed
		),
		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assist_completions_total",
				Help: "Total number of assisted region replies received",
			},
			[]string{"outcome"}, // outcome: applied, empty, stale, unknown
		),
		pollsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "assist_polls_total",
				Help: "Total number of polls for open assisted region requests",
			},
		),
		openRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "assist_open_requests",
				Help: "Number of assisted region requests awaiting a reply",
			},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.completionsTotal.Describe(ch)
	m.pollsTotal.Describe(ch)
	m.openRequests.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.completionsTotal.Collect(ch)
	m.pollsTotal.Collect(ch)
	m.openRequests.Collect(ch)
}

func (m *Metrics) recordRequest(status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) recordCompletion(outcome string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordPoll() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}

func (m *Metrics) setOpen(n int) {
	if m == nil {
		return
	}
	m.openRequests.Set(float64(n))
}
