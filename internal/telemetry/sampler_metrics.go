package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAverage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infoband_sampler_average",
			Help: "Exponentially smoothed value of a sampled system metric.",
		},
		[]string{"metric"},
	)
	fetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infoband_sampler_fetch_failures_total",
			Help: "Number of fetch ticks on which a metric could not be read.",
		},
		[]string{"metric"},
	)
)
