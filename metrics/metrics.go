// Package metrics holds the Prometheus collectors exported on /metrics.
// Labels stay low-cardinality: no project or upload identifiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vedit"

var (
	// ChunksReceivedTotal counts accepted upload chunks.
	ChunksReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_chunks_received_total",
		Help:      "Total number of upload chunks written to disk.",
	})

	// UploadsAssembledTotal counts reassembled uploads by result (ok/error).
	UploadsAssembledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_assembled_total",
		Help:      "Total number of completed chunked uploads, by result.",
	}, []string{"result"})

	// ThumbnailTilesTotal counts rendered tiles by result.
	ThumbnailTilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnail_tiles_total",
		Help:      "Total number of thumbnail tiles attempted, by result.",
	}, []string{"result"})

	// JobsTotal counts job transitions by kind and status.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Total number of background job transitions, by kind and status.",
	}, []string{"kind", "status"})

	// JobsInFlight tracks running background jobs by kind.
	JobsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_in_flight",
		Help:      "Current number of running background jobs, by kind.",
	}, []string{"kind"})

	// ExportDurationSeconds observes full export pipeline runs.
	ExportDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "export_duration_seconds",
		Help:      "Wall time of export pipeline runs, by result.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"result"})
)

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
