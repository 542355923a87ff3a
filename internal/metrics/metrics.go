// Package metrics defines the Prometheus collectors exposed by the
// orchestrator and worker binaries on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts terminal job outcomes by status ("success",
	// "failed").
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_jobs_total",
		Help: "Total number of jobs reaching a terminal status.",
	}, []string{"status"})

	// NodeDuration records how long each pipeline node took to run,
	// including time spent blocked on a worker callback.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_node_duration_seconds",
		Help:    "Duration of a single pipeline node invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"node"})

	// WorkerTimeoutsTotal counts WorkerTimeout errors by worker name.
	WorkerTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_worker_timeouts_total",
		Help: "Total number of worker invocations that timed out.",
	}, []string{"worker"})

	// WorkerRequestsTotal counts processed requests per worker, by
	// outcome, incremented by workerservice.Service for every request it
	// handles.
	WorkerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_worker_requests_total",
		Help: "Total number of requests processed by a worker instance.",
	}, []string{"worker", "outcome"})
)
