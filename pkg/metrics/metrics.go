package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered on the default registry through promauto.

var (
	// SuperstepDuration measures one Map call from drain to barrier.
	SuperstepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "minigraph_superstep_duration_seconds",
			Help: "Duration of a superstep over one fragment in seconds",
			// From tiny frontiers (microseconds) to full-fragment sweeps.
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"kind"}, // "filter_compute" or "func"
	)

	// FrontierVertices counts vertices entering and leaving supersteps.
	FrontierVertices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minigraph_frontier_vertices_total",
			Help: "Vertices drained from input frontiers and emitted to output frontiers",
		},
		[]string{"side"}, // "in" or "out"
	)

	// SuperstepFailures counts supersteps aborted by a callback error or panic.
	SuperstepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minigraph_superstep_failures_total",
			Help: "Supersteps aborted because a vertex callback failed",
		},
	)

	// RunnerPanics counts tasks that panicked inside an executor pool.
	RunnerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minigraph_runner_panics_total",
			Help: "Tasks that panicked inside an executor pool",
		},
	)

	// PartitionDuration measures a full edge-cut partitioning run.
	PartitionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minigraph_partition_duration_seconds",
			Help:    "Duration of edge-cut partitioning in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	// CrossEdges counts edges whose endpoints landed in different fragments.
	CrossEdges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minigraph_cross_edges_total",
			Help: "Edges cut by the partitioner",
		},
	)

	// FragmentsWritten counts fragments serialized by the conversion pipeline.
	FragmentsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minigraph_fragments_written_total",
			Help: "Fragments written to disk",
		},
	)
)
