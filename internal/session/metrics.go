package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calculator_sessions_active",
		Help: "Number of calculator sessions currently stored.",
	})

	evictedSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calculator_sessions_evicted_total",
		Help: "Number of idle calculator sessions removed by the sweeper.",
	})
)
