package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infoband_overlay_events_total",
			Help: "Number of events dispatched by the overlay event loop.",
		},
		[]string{"kind"},
	)

	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infoband_overlay_renders_total",
			Help: "Number of frames rendered, by reason.",
		},
		[]string{"reason"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "infoband_overlay_queue_depth",
			Help: "Events waiting in the overlay event queue.",
		},
	)
)
