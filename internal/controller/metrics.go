package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeResult       = "result"
	outcomeShortCircuit = "short_circuit"
	outcomeError        = "error"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartd",
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Controller dispatches by outcome",
		},
		[]string{"controller", "outcome"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartd",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent in the dispatch listener chain",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"controller"},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, dispatchDuration)
}

func observeDispatch(controller, outcome string, start time.Time) {
	if controller == "" {
		controller = "anonymous"
	}
	dispatchTotal.WithLabelValues(controller, outcome).Inc()
	dispatchDuration.WithLabelValues(controller).Observe(time.Since(start).Seconds())
}
