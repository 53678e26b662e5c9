package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes used as the outcome label.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Searches             *prometheus.CounterVec
	AuditWrites          *prometheus.CounterVec
	DeltaRequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telefonbog_searches_total",
			Help: "Total number of directory searches by identifier kind and outcome",
		}, []string{"kind", "outcome"}),
		AuditWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telefonbog_audit_writes_total",
			Help: "Total number of CPR audit log writes by outcome",
		}, []string{"outcome"}),
		DeltaRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telefonbog_delta_request_duration_seconds",
			Help:    "Duration of graph-query requests to Delta",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveSearch(kind, outcome string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveAuditWrite(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = OutcomeError
	}
	m.AuditWrites.WithLabelValues(outcome).Inc()
}

// ObserveDeltaRequest records a request duration. status is the HTTP status
// class ("2xx", "5xx") or "error" when no response arrived.
func (m *Metrics) ObserveDeltaRequest(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DeltaRequestDuration.WithLabelValues(status).Observe(d.Seconds())
}
