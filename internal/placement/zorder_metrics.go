package placement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stackingUpdates = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "infoband_placement_stacking_updates_total",
		Help: "Number of stacking order changes applied to the overlay window.",
	},
	[]string{"topmost"},
)
