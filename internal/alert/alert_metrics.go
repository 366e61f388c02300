package alert

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the intake subsystem.
type Metrics struct {
	IntakeTotal    *prometheus.CounterVec
	StormsDetected prometheus.Counter
	StormCounter   prometheus.Histogram
	AcksTotal      prometheus.Counter
	ListDuration   prometheus.Histogram
}

// NewMetrics registers and returns intake metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IntakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stormgate_intake_total",
			Help: "Total alert submissions by outcome.",
		}, []string{"outcome"}),
		StormsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormgate_storms_detected_total",
			Help: "Total storm episodes detected.",
		}),
		StormCounter: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stormgate_storm_counter_value",
			Help:    "Per-device storm counter value observed at each increment.",
			Buckets: prometheus.LinearBuckets(1, 2, 10), // 1 .. 19
		}),
		AcksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormgate_acknowledgments_total",
			Help: "Total successful alert acknowledgments.",
		}),
		ListDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stormgate_list_duration_seconds",
			Help:    "Duration of filtered alert listings in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.IntakeTotal,
		m.StormsDetected,
		m.StormCounter,
		m.AcksTotal,
		m.ListDuration,
	)

	return m
}
