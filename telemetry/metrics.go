// Package telemetry wires frametree's optional Prometheus metrics and
// OpenTelemetry tracing: a Collector that registers its own collectors
// idempotently, and a Tracer that wraps the stdout span exporter.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the Prometheus metrics frametree exposes for the frame
// graph's cache and the temporal buffer's retention. It implements
// graph.MetricsRecorder structurally, so graph never imports this package.
type Collector struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	DirtyMarked prometheus.Counter
	QueryLatency prometheus.Histogram
	BufferPruned prometheus.Counter
}

// NewCollector registers frametree's Prometheus metrics against reg,
// defaulting to the global registry when nil, with idempotent
// registration so constructing multiple Trees against the same registry
// does not panic.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frametree_cache_hits_total",
		Help: "Number of worldOf lookups served from the world-transform cache.",
	}), "frametree_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frametree_cache_misses_total",
		Help: "Number of worldOf lookups that required recomputation.",
	}), "frametree_cache_misses_total")
	if err != nil {
		return nil, err
	}
	dirty, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frametree_dirty_marked_total",
		Help: "Number of frame ids marked dirty across all mutators.",
	}), "frametree_dirty_marked_total")
	if err != nil {
		return nil, err
	}
	latency, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "frametree_query_duration_seconds",
		Help:    "Latency of worldOf recomputation, including cache hits.",
		Buckets: prometheus.DefBuckets,
	}), "frametree_query_duration_seconds")
	if err != nil {
		return nil, err
	}
	pruned, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frametree_buffer_samples_pruned_total",
		Help: "Number of temporal buffer samples dropped for exceeding the retention window.",
	}), "frametree_buffer_samples_pruned_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		CacheHits:    hits,
		CacheMisses:  misses,
		DirtyMarked:  dirty,
		QueryLatency: latency,
		BufferPruned: pruned,
	}, nil
}

// RecordCacheHit implements graph.MetricsRecorder.
func (c *Collector) RecordCacheHit() { c.CacheHits.Inc() }

// RecordCacheMiss implements graph.MetricsRecorder.
func (c *Collector) RecordCacheMiss() { c.CacheMisses.Inc() }

// RecordDirtyMarked implements graph.MetricsRecorder.
func (c *Collector) RecordDirtyMarked(n int) { c.DirtyMarked.Add(float64(n)) }

// ObserveQueryDuration implements graph.MetricsRecorder.
func (c *Collector) ObserveQueryDuration(d time.Duration) { c.QueryLatency.Observe(d.Seconds()) }

// RecordBufferPruned implements graph.MetricsRecorder.
func (c *Collector) RecordBufferPruned(n int) { c.BufferPruned.Add(float64(n)) }

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
