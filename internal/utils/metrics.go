package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector tracks realtime delivery metrics across the system.
type MetricsCollector struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	OpenRooms         prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
	PayloadsDropped   prometheus.Counter
	MessagesSent      prometheus.Counter
	JoinsDenied       prometheus.Counter
}

func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	mc := &MetricsCollector{
		registry: registry,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "talentbridge_active_connections",
			Help: "Number of live websocket connections.",
		}),
		OpenRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "talentbridge_open_rooms",
			Help: "Number of rooms with at least one subscriber.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentbridge_events_published_total",
			Help: "Events published into rooms, by event type.",
		}, []string{"event"}),
		PayloadsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbridge_payloads_dropped_total",
			Help: "Payloads dropped because a subscriber's send buffer was full.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbridge_messages_sent_total",
			Help: "Conversation messages persisted.",
		}),
		JoinsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbridge_joins_denied_total",
			Help: "Room join attempts denied by the authorization gate.",
		}),
	}

	registry.MustRegister(
		mc.ActiveConnections,
		mc.OpenRooms,
		mc.EventsPublished,
		mc.PayloadsDropped,
		mc.MessagesSent,
		mc.JoinsDenied,
	)

	return mc
}

// Handler exposes the collector's registry for the /metrics endpoint.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
