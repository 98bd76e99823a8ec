// Package metrics counts provider queries, dropped candidates, cache
// activity and solver runs on a private Prometheus registry.
package metrics

import (
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for CandidateDropped.
const (
	DropEffective = "effective"
	DropBlacklist = "blacklist"
	DropHook      = "hook"
	DropFilter    = "filter"
	DropDuplicate = "duplicate"
	DropPermitted = "permitted"
)

// Cache results for CacheResult.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
	CacheError   = "error"
)

// Recorder holds the collectors. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	findProviders      *prometheus.CounterVec
	findProvidersEmpty *prometheus.CounterVec
	candidatesDropped  *prometheus.CounterVec
	resourceCache      *prometheus.CounterVec
	unresolved         prometheus.Gauge
	solveDuration      prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		findProviders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capresolve_find_providers_total",
				Help: "Number of provider queries by requirement namespace.",
			},
			[]string{"namespace"},
		),
		findProvidersEmpty: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capresolve_find_providers_empty_total",
				Help: "Number of provider queries that found no candidate.",
			},
			[]string{"namespace"},
		),
		candidatesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capresolve_candidates_dropped_total",
				Help: "Number of candidates removed while answering provider queries.",
			},
			[]string{"reason"},
		),
		resourceCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capresolve_resource_cache_total",
				Help: "File resource cache lookups by result.",
			},
			[]string{"result"},
		),
		unresolved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "capresolve_unresolved_requirements",
				Help: "Number of mandatory requirements without a provider in the last solve.",
			},
		),
		solveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "capresolve_solve_duration_seconds",
				Help:    "Time taken to solve a resolution.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	r.registry.MustRegister(
		r.findProviders,
		r.findProvidersEmpty,
		r.candidatesDropped,
		r.resourceCache,
		r.unresolved,
		r.solveDuration,
	)
	return r
}

// Registry exposes the private registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) FindProviders(namespace string, found int) {
	if r == nil {
		return
	}
	r.findProviders.WithLabelValues(namespace).Inc()
	if found == 0 {
		r.findProvidersEmpty.WithLabelValues(namespace).Inc()
	}
}

func (r *Recorder) CandidatesDropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.candidatesDropped.WithLabelValues(reason).Add(float64(n))
}

func (r *Recorder) CacheResult(result string) {
	if r == nil {
		return
	}
	r.resourceCache.WithLabelValues(result).Inc()
}

func (r *Recorder) SolveFinished(elapsed time.Duration, unresolved int) {
	if r == nil {
		return
	}
	r.solveDuration.Observe(elapsed.Seconds())
	r.unresolved.Set(float64(unresolved))
}

// WriteTextfile writes every collected metric in the text exposition
// format, suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics file").
			WithCause(err)
	}
	return nil
}
