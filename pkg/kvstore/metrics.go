package kvstore

// metrics.go is a thin abstraction over Prometheus, mirroring
// Voskan-arena-cache's pkg/metrics.go: when the caller supplies a
// *prometheus.Registry via WithMetrics, labeled per-shard metrics are
// registered; otherwise a no-op sink is used so the hot path never pays for
// metric updates it did not ask for.

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the concrete backend (Prometheus vs noop) away from
// shard.go and store.go.
type metricsSink interface {
	incHit(shard int)
	incMiss(shard int)
	incPut(shard int)
	incDelete(shard int)
	incFlushError(shard int)
	setKeys(shard int, keys uint64)
	setOffsetFree(shard int, offsetFree uint64)
}

type noopMetrics struct{}

func (noopMetrics) incHit(int)                    {}
func (noopMetrics) incMiss(int)                   {}
func (noopMetrics) incPut(int)                    {}
func (noopMetrics) incDelete(int)                 {}
func (noopMetrics) incFlushError(int)              {}
func (noopMetrics) setKeys(int, uint64)           {}
func (noopMetrics) setOffsetFree(int, uint64)     {}

type promMetrics struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	puts        *prometheus.CounterVec
	deletes     *prometheus.CounterVec
	flushErrors *prometheus.CounterVec
	keys        *prometheus.GaugeVec
	offsetFree  *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	label := []string{"shard"}

	pm := &promMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Name:      "get_hits_total",
			Help:      "Number of Get calls that found a live entry.",
		}, label),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Name:      "get_misses_total",
			Help:      "Number of Get calls that found no live entry.",
		}, label),
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Name:      "puts_total",
			Help:      "Number of successful Put calls.",
		}, label),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Name:      "deletes_total",
			Help:      "Number of successful Delete calls.",
		}, label),
		flushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvstore",
			Name:      "flush_errors_total",
			Help:      "Number of synchronous flushes that returned an error.",
		}, label),
		keys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvstore",
			Name:      "lookup_table_keys",
			Help:      "Lookup-table high-water mark (header.keys) per shard.",
		}, label),
		offsetFree: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvstore",
			Name:      "data_region_offset_free_bytes",
			Help:      "Next free byte offset in the value-data region per shard.",
		}, label),
	}

	reg.MustRegister(pm.hits, pm.misses, pm.puts, pm.deletes, pm.flushErrors, pm.keys, pm.offsetFree)

	return pm
}

func (m *promMetrics) incHit(shard int)    { m.hits.WithLabelValues(strconv.Itoa(shard)).Inc() }
func (m *promMetrics) incMiss(shard int)   { m.misses.WithLabelValues(strconv.Itoa(shard)).Inc() }
func (m *promMetrics) incPut(shard int)    { m.puts.WithLabelValues(strconv.Itoa(shard)).Inc() }
func (m *promMetrics) incDelete(shard int) { m.deletes.WithLabelValues(strconv.Itoa(shard)).Inc() }
func (m *promMetrics) incFlushError(shard int) {
	m.flushErrors.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (m *promMetrics) setKeys(shard int, keys uint64) {
	m.keys.WithLabelValues(strconv.Itoa(shard)).Set(float64(keys))
}

func (m *promMetrics) setOffsetFree(shard int, offsetFree uint64) {
	m.offsetFree.WithLabelValues(strconv.Itoa(shard)).Set(float64(offsetFree))
}

// newMetricsSink decides which implementation to use. A nil registry
// disables metrics.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}

	return newPromMetrics(reg)
}
