package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every chatmerge collector. It is separate from the default
// registry so a run can be written out as a node_exporter textfile.
var Registry = prometheus.NewRegistry()

var (
	// Extraction metrics
	MessagesExtracted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmerge_messages_extracted_total",
			Help: "Messages read from exports",
		},
		[]string{"kind"}, // "json" or "html"
	)

	SourcesSkipped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chatmerge_sources_skipped_total",
			Help: "Malformed exports left out of a build",
		},
	)

	// Merge metrics
	MergeConflicts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmerge_merge_conflicts_total",
			Help: "Fields where two sources held different real values",
		},
		[]string{"field"},
	)

	TimestampsFilled = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chatmerge_timestamps_filled_total",
			Help: "Unset timestamps borrowed from the previous message",
		},
	)

	StoreMessages = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chatmerge_store_messages",
			Help: "Messages in the consolidated store after the last build",
		},
	)

	BuildDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatmerge_build_duration_seconds",
			Help:    "Time spent extracting and folding all sources",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)
)

// WriteTextfile dumps the registry to path. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
