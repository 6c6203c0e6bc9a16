package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollIntervalGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spread_engine_poll_interval_seconds",
		Help: "Next recommended polling interval computed by the adaptive controller.",
	})

	decisionStatusCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spread_engine_decisions_total",
		Help: "Count of evaluated decisions by terminal status.",
	}, []string{"status"})
)
