package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports health check results to prometheus.
type Metrics struct {
	status   *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the health collectors. The caller supplies
// the registerer so tests can use isolated registries.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_status",
			Help: "Latest health check status (0=green, 1=yellow, 2=red).",
		}, []string{"check"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "health_check_duration_seconds",
			Help:    "Health check execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"check"}),
	}
	for _, c := range []prometheus.Collector{m.status, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one result.
func (m *Metrics) Observe(result Result) {
	m.status.WithLabelValues(result.Name).Set(float64(result.Status))
	m.duration.WithLabelValues(result.Name).Observe(result.Duration.Seconds())
}
