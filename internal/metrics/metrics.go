package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the check-in counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registrations *prometheus.CounterVec
	Scans         *prometheus.CounterVec
}

// New creates the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "Credential scans by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveScan(outcome string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(outcome).Inc()
}
