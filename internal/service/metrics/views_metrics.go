package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ViewLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "views",
			Name:      "latency_seconds",
			Help:      "Latency of result view endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ViewErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "views",
			Name:      "errors_total",
			Help:      "Errors by result view endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ViewLatency, ViewErrors)
	})
}

// Observe records one view call.
func Observe(endpoint string, start time.Time, err error) {
	ViewLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		ViewErrors.WithLabelValues(endpoint).Inc()
	}
}
