package transport

import "github.com/prometheus/client_golang/prometheus"

var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carrier_breaker_state",
			Help: "Current carrier breaker state: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_breaker_transition_total",
			Help: "Count of carrier breaker state transitions",
		},
		[]string{"target", "from", "to"},
	)
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_fetch_total",
			Help: "Count of carrier backend requests by outcome",
		},
		[]string{"target", "result"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carrier_fetch_duration_ms",
			Help:    "Latency of carrier backend requests in milliseconds",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, FetchTotal, FetchDuration)
}
