// Package metrics exposes the engine's Prometheus collectors. Collectors
// register themselves on the default registry at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "puzzle_engine"

var (
	// RecommendationsTotal counts served recommendations by pool category
	// and the primary state that produced them.
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Recommendations served, by pool category and user state.",
	}, []string{"category", "state"})

	// ClassificationsTotal counts primary state classifications.
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifications_total",
		Help:      "Primary state classifications.",
	}, []string{"state"})

	// ResponsesTotal counts recorded puzzle responses by outcome.
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responses_total",
		Help:      "Recorded puzzle responses, by outcome.",
	}, []string{"outcome"})

	// ProfileStorageFailures counts load/save failures that put a request
	// into degraded mode.
	ProfileStorageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_storage_failures_total",
		Help:      "Profile load/save failures that triggered degraded mode.",
	})

	// SelectionDuration observes end-to-end recommendation latency.
	SelectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "selection_duration_seconds",
		Help:      "Time to produce one recommendation.",
		Buckets:   prometheus.DefBuckets,
	})

	// PuzzlesGenerated counts inventory puzzles produced by the generator,
	// by puzzle type.
	PuzzlesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "puzzles_generated_total",
		Help:      "Puzzles added to the inventory, by type.",
	}, []string{"type"})

	// GenerationFailures counts failed generation attempts.
	GenerationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_failures_total",
		Help:      "Failed puzzle generation attempts.",
	})
)

// RegisterDNACacheSize registers a gauge backed by the analyzer's live
// cache size.
func RegisterDNACacheSize(f func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dna_cache_entries",
		Help:      "Distinct puzzle identities held in the DNA cache.",
	}, f)
}
