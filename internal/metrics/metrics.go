// Package metrics exposes the coordinator's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_connections_active",
		Help: "Live realtime connections.",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_rooms_active",
		Help: "Rooms with at least one live connection.",
	})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_events_total",
		Help: "Client events processed, by event name.",
	}, []string{"event"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_events_dropped_total",
		Help: "Client events silently dropped by the rate limiter.",
	})

	HandshakesRefused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_handshakes_refused_total",
		Help: "Handshakes refused by auth or the rate limiter.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_frames_dropped_total",
		Help: "Outbound frames dropped due to backpressure.",
	})
)
