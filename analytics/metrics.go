package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_ticks_total",
			Help: "Total number of simulation ticks",
		},
		[]string{"twin"},
	)

	tickPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_tick_panics_total",
			Help: "Total number of ticks that panicked and were recovered",
		},
		[]string{"loop"},
	)

	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomalies detected",
		},
		[]string{"twin"},
	)

	automationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_actions_total",
			Help: "Total number of corrective actions taken",
		},
		[]string{"twin", "action"},
	)

	externalBias = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "twin_external_bias",
			Help: "Current external bias fed back into the simulator",
		},
		[]string{"twin"},
	)

	classifyDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_classify_duration_seconds",
			Help:    "Time spent refitting and applying the outlier classifier",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"twin"},
	)
)
