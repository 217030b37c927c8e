package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "tstr"

var (
	PollCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Revision poll cycles by result.",
	}, []string{"result"})

	ReconciledHeads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciled_heads_total",
		Help:      "Observed heads by reconcile outcome.",
	}, []string{"outcome"})

	ScheduledJobs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_jobs_total",
		Help:      "Jobs created by the scheduler.",
	})

	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by result.",
	}, []string{"result"})

	PipelineStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"stage"})

	ImageCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_total",
		Help:      "Image existence checks by image and result.",
	}, []string{"image", "result"})

	LoopErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loop_errors_total",
		Help:      "Errors handled at a loop boundary by loop and error kind.",
	}, []string{"loop", "kind"})
)

func collectorsOf() []prometheus.Collector {
	return []prometheus.Collector{
		PollCycles,
		ReconciledHeads,
		ScheduledJobs,
		PipelineRuns,
		PipelineStageSeconds,
		ImageCache,
		LoopErrors,
	}
}

// NewRegistry returns a registry with all tstr collectors plus the Go runtime
// and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectorsOf()...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
