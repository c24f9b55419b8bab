package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the real-time channel.
// A nil *Metrics is valid and records nothing, which keeps tests and
// embedded uses free of registry plumbing.
type Metrics struct {
	activeConnections prometheus.Gauge
	connectsTotal     prometheus.Counter
	handshakeRejects  *prometheus.CounterVec
	eventsDelivered   prometheus.Counter
	eventsQueued      prometheus.Counter
	writeErrors       prometheus.Counter
	decodeErrors      prometheus.Counter
	pongsTotal        prometheus.Counter
}

// NewMetrics registers the channel metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cofly",
			Name:      "active_connections",
			Help:      "Number of live WebSocket connections",
		}),
		connectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "connects_total",
			Help:      "Total accepted WebSocket connections",
		}),
		handshakeRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "handshake_rejects_total",
			Help:      "Total rejected WebSocket handshakes by reason",
		}, []string{"reason"}),
		eventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "events_delivered_total",
			Help:      "Total event pushes that reached at least one connection",
		}),
		eventsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "events_queued_total",
			Help:      "Total event pushes queued for offline identities",
		}),
		writeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "write_errors_total",
			Help:      "Total failed frame writes (connection dropped as a result)",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "frame_decode_errors_total",
			Help:      "Total malformed inbound frames (fatal to their connection)",
		}),
		pongsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cofly",
			Name:      "pongs_total",
			Help:      "Total pong frames sent in reply to client pings",
		}),
	}
}

func (m *Metrics) recordConnect() {
	if m != nil {
		m.connectsTotal.Inc()
		m.activeConnections.Inc()
	}
}

func (m *Metrics) recordDisconnect(n int) {
	if m != nil {
		m.activeConnections.Sub(float64(n))
	}
}

func (m *Metrics) recordReject(reason string) {
	if m != nil {
		m.handshakeRejects.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) recordPush(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.eventsDelivered.Inc()
	} else {
		m.eventsQueued.Inc()
	}
}

func (m *Metrics) recordWriteError() {
	if m != nil {
		m.writeErrors.Inc()
	}
}

func (m *Metrics) recordDecodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) recordPong() {
	if m != nil {
		m.pongsTotal.Inc()
	}
}
