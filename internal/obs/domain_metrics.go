package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// UnrecognizedStatusTotal counts carrier status labels without a dedicated rule.
	UnrecognizedStatusTotal *prometheus.CounterVec
	// ParseFailuresTotal counts carrier payloads that could not be decoded.
	ParseFailuresTotal *prometheus.CounterVec
	// LookupsTotal counts parcel lookups by outcome.
	LookupsTotal *prometheus.CounterVec
	// LookupDuration records end-to-end lookup latency in milliseconds.
	LookupDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers tracking Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		UnrecognizedStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_unrecognized_status_total",
			Help:      "Count of carrier status labels mapped to generic events.",
		}, []string{"carrier"})
		ParseFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_parse_failures_total",
			Help:      "Count of carrier payload fields that failed to parse.",
		}, []string{"carrier", "field"})
		LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_lookups_total",
			Help:      "Count of parcel lookups by outcome.",
		}, []string{"carrier", "result"})
		LookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracking_lookup_duration_ms",
			Help:      "Latency for parcel lookups in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"carrier"})

		UnrecognizedStatusTotal = register(reg, UnrecognizedStatusTotal)
		ParseFailuresTotal = register(reg, ParseFailuresTotal)
		LookupsTotal = register(reg, LookupsTotal)
		LookupDuration = register(reg, LookupDuration)
	})
}

// RecordUnrecognizedStatus notes a status label that fell back to a generic event.
// It is a no-op until the domain metrics are registered.
func RecordUnrecognizedStatus(carrier string) {
	if UnrecognizedStatusTotal != nil {
		UnrecognizedStatusTotal.WithLabelValues(carrier).Inc()
	}
}

// RecordParseFailure notes a payload field that could not be decoded.
func RecordParseFailure(carrier, field string) {
	if ParseFailuresTotal != nil {
		ParseFailuresTotal.WithLabelValues(carrier, field).Inc()
	}
}

// RecordLookup notes the outcome and latency in milliseconds of a parcel lookup.
func RecordLookup(carrier, result string, millis float64) {
	if LookupsTotal != nil {
		LookupsTotal.WithLabelValues(carrier, result).Inc()
	}
	if LookupDuration != nil {
		LookupDuration.WithLabelValues(carrier).Observe(millis)
	}
}
