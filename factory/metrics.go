package factory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	factorySpeed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "factory_speed",
			Help: "Current factory speed multiplier",
		},
	)

	workCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factory_work_cycles_total",
			Help: "Total number of completed machine work cycles",
		},
		[]string{"machine"},
	)

	machinesWorking = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "factory_machines_working",
			Help: "Number of machines currently in a work cycle",
		},
	)
)
