package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Comparisons = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotdiff",
		Name:      "comparisons_total",
		Help:      "Comparison requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	ComparisonDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spotdiff",
		Name:      "comparison_duration_seconds",
		Help:      "Wall time of comparison requests, including the model round trip.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider"})

	OverlayRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotdiff",
		Name:      "overlay_renders_total",
		Help:      "Overlay renders by image index and result.",
	}, []string{"index", "result"})
)

// ObserveComparison records one finished comparison
func ObserveComparison(provider, outcome string, elapsed time.Duration) {
	Comparisons.WithLabelValues(provider, outcome).Inc()
	ComparisonDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
