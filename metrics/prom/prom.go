// Package prom exports cache.Metrics to Prometheus.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/flexcache/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evicts    *prometheus.CounterVec
	entries   *prometheus.GaugeVec
	weighted  *prometheus.GaugeVec
	capacity  prometheus.Gauge
	unbounded prometheus.Gauge
	resizes   *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: constLabels}
	}
	a := &Adapter{
		hits:   prometheus.NewCounter(prometheus.CounterOpts(opts("hits_total", "Cache hits"))),
		misses: prometheus.NewCounter(prometheus.CounterOpts(opts("misses_total", "Cache misses"))),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("evictions_total", "Cache evictions by reason")),
			[]string{"reason"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts(opts("shard_entries", "Resident entries per shard")),
			[]string{"shard"},
		),
		weighted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts(opts("shard_weighted_size", "Resident weight per shard")),
			[]string{"shard"},
		),
		capacity:  prometheus.NewGauge(prometheus.GaugeOpts(opts("max_capacity", "Total capacity in weight units (0 when unbounded)"))),
		unbounded: prometheus.NewGauge(prometheus.GaugeOpts(opts("unbounded", "1 when the cache has no capacity bound"))),
		resizes: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("resizes_total", "Applied capacity changes by direction")),
			[]string{"direction"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.entries, a.weighted, a.capacity, a.unbounded, a.resizes)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

// Size updates the per-shard gauges.
func (a *Adapter) Size(shard int, entries int, weighted uint64) {
	label := strconv.Itoa(shard)
	a.entries.WithLabelValues(label).Set(float64(entries))
	a.weighted.WithLabelValues(label).Set(float64(weighted))
}

// Capacity records the installed total capacity.
func (a *Adapter) Capacity(total cache.Bound) {
	n, ok := total.Get()
	if !ok {
		a.capacity.Set(0)
		a.unbounded.Set(1)
		return
	}
	a.capacity.Set(float64(n))
	a.unbounded.Set(0)
}

// Resized counts a capacity change as "grow" or "shrink".
func (a *Adapter) Resized(from, to cache.Bound) {
	a.resizes.WithLabelValues(direction(from, to)).Inc()
}

func direction(from, to cache.Bound) string {
	if to.Less(from) {
		return "shrink"
	}
	return "grow"
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
