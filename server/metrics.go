package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports message handling counters.
type Metrics struct {
	connections prometheus.Gauge
	messages    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	handlerErrs prometheus.Counter
}

// NewMetrics creates and registers the server collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "server_active_connections",
			Help: "Number of open client connections.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "server_messages_total",
			Help: "Messages dispatched to handlers, by message type.",
		}, []string{"type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "server_rejected_messages_total",
			Help: "Messages dropped before dispatch, by reason.",
		}, []string{"reason"}),
		handlerErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "server_handler_errors_total",
			Help: "Handler invocations that returned an error.",
		}),
	}
	for _, c := range []prometheus.Collector{m.connections, m.messages, m.rejected, m.handlerErrs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) connOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) dispatched(msgType string) {
	if m != nil {
		m.messages.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) reject(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) handlerError() {
	if m != nil {
		m.handlerErrs.Inc()
	}
}
