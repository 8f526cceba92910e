package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the cache's metrics sink. Every counter and histogram
// name and label below is part of the public observability interface
// and must not be renamed.
type Metrics struct {
	hits            *prometheus.CounterVec // labels: layer, kind
	misses          *prometheus.CounterVec // labels: kind
	errors          *prometheus.CounterVec // labels: operation, kind
	sets            *prometheus.CounterVec // labels: kind
	deletes         *prometheus.CounterVec // labels: result
	batchOps        *prometheus.CounterVec // labels: op, kind
	pipelineSets    *prometheus.CounterVec // labels: kind
	clears          *prometheus.CounterVec // labels: kind
	evictions       prometheus.Counter
	inconsistentCln prometheus.Counter
	latency         *prometheus.HistogramVec // labels: operation
	batchLatency    *prometheus.HistogramVec // labels: operation, kind
	evictionSize    prometheus.Histogram
	memoryEntries   *prometheus.GaugeVec // labels: kind
	mappingSize     prometheus.Gauge
}

// NewMetrics registers the cache's prometheus collectors against reg.
// Recording calls never fail observably and stay off the critical
// result path.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hit_total", Help: "Cache hits by layer and kind.",
		}, []string{"layer", "kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_miss_total", Help: "Cache misses by kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_error_total", Help: "Cache errors by operation and kind.",
		}, []string{"operation", "kind"}),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_set_total", Help: "Cache sets by kind.",
		}, []string{"kind"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_delete_total", Help: "Cache deletes by result.",
		}, []string{"result"}),
		batchOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_batch_op_total", Help: "Batch operations by op and kind.",
		}, []string{"op", "kind"}),
		pipelineSets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_pipeline_set_total", Help: "Pipelined batch sets by kind.",
		}, []string{"kind"}),
		clears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_clear_total", Help: "Entries removed by kind-level clears.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_eviction_total", Help: "In-process cache evictions.",
		}),
		inconsistentCln: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_inconsistent_cleanup_total", Help: "In-process entries dropped after failing mapping verification.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cache_latency_ns", Help: "Single-key operation latency in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(1_000, 4, 12),
		}, []string{"operation"}),
		batchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cache_batch_latency_ns", Help: "Batch operation latency in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(1_000, 4, 12),
		}, []string{"operation", "kind"}),
		evictionSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cache_eviction_size", Help: "Size of blob evicted from the in-process tier.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		memoryEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cache_memory_entries", Help: "Current entry count in the in-process tier by kind.",
		}, []string{"kind"}),
		mappingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_mapping_size", Help: "Current hash-to-key mapping table size.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.errors, m.sets, m.deletes, m.batchOps,
			m.pipelineSets, m.clears, m.evictions, m.inconsistentCln, m.latency,
			m.batchLatency, m.evictionSize, m.memoryEntries, m.mappingSize)
	}
	return m
}

func (m *Metrics) RecordHit(layer, kind string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(layer, kind).Inc()
}

func (m *Metrics) RecordMiss(kind string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordError(operation, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) RecordSet(kind string) {
	if m == nil {
		return
	}
	m.sets.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDelete(result string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordBatchOp(op, kind string) {
	if m == nil {
		return
	}
	m.batchOps.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) RecordPipelineSet(kind string) {
	if m == nil {
		return
	}
	m.pipelineSets.WithLabelValues(kind).Inc()
}

// RecordClear adds the number of entries removed by a kind-level clear,
// not the number of clear calls.
func (m *Metrics) RecordClear(kind string, count int) {
	if m == nil {
		return
	}
	m.clears.WithLabelValues(kind).Add(float64(count))
}

func (m *Metrics) RecordEviction(size int) {
	if m == nil {
		return
	}
	m.evictions.Inc()
	m.evictionSize.Observe(float64(size))
}

func (m *Metrics) RecordInconsistentCleanup() {
	if m == nil {
		return
	}
	m.inconsistentCln.Inc()
}

func (m *Metrics) RecordLatency(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(operation).Observe(float64(d.Nanoseconds()))
}

func (m *Metrics) RecordBatchLatency(operation, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchLatency.WithLabelValues(operation, kind).Observe(float64(d.Nanoseconds()))
}

func (m *Metrics) SetMemoryEntries(kind string, n int) {
	if m == nil {
		return
	}
	m.memoryEntries.WithLabelValues(kind).Set(float64(n))
}

func (m *Metrics) SetMappingSize(n int) {
	if m == nil {
		return
	}
	m.mappingSize.Set(float64(n))
}
