package cache

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IvanBrykalov/flexcache/policy"
)

// EvictReason explains why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity: removed to bring a shard under its capacity bound,
	// on insert or while draining after a capacity decrease.
	EvictCapacity EvictReason = iota
	// EvictPolicy: proposed by the eviction policy itself (e.g. 2Q A1in overflow).
	EvictPolicy
	// EvictExplicit: removed by Remove.
	EvictExplicit
	// EvictReplaced: the old value of a key overwritten by Set.
	EvictReplaced
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictPolicy:
		return "policy"
	case EvictExplicit:
		return "explicit"
	case EvictReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Capacity and Resized are called while resizes are serialized; they must not
// resize the cache.
type Metrics interface {
	Hit()
	Miss()
	// Evict is reported for EvictCapacity and EvictPolicy only.
	Evict(reason EvictReason)
	// Size reports one shard's resident entries and weighted size.
	Size(shard int, entries int, weighted uint64)
	// Capacity reports the installed total capacity.
	Capacity(total Bound)
	// Resized is reported once per applied (non no-op) resize.
	Resized(from, to Bound)
}

const (
	defaultHousekeepingInterval = time.Second
	defaultDrainBatch           = 1024
)

// Options configures the cache. Zero values are safe; defaults are applied
// in New():
//   - zero MaxCapacity        => unbounded
//   - nil Policy              => LRU
//   - Shards <= 0             => auto (rounded up to power of two)
//   - nil Weigher             => every entry weighs 1
//   - nil Metrics             => NoopMetrics
//   - nil Logger              => discard
//   - HousekeepingInterval 0  => 1s; negative disables the background
//     goroutine (passes run only through RunPendingTasks)
//   - DrainBatch <= 0         => 1024 victims per shard per pass
type Options[K comparable, V any] struct {
	// MaxCapacity is the total weighted capacity, split across shards.
	MaxCapacity Bound

	// Shards defines the number of shards, rounded up to a power of two.
	Shards int

	// Policy chooses eviction victims (LRU/2Q/...).
	Policy policy.Policy[K, V]

	// Weigher returns an entry's weight in capacity units.
	Weigher func(k K, v V) uint32

	// Admission enables the TinyLFU filter: an insert that would push a
	// shard over its bound is dropped unless the new key is estimated to be
	// more popular than the victim it would displace.
	Admission bool

	// OnEvict is called for every entry leaving the cache, under the shard
	// lock; keep callbacks lightweight and do not call back into the cache.
	OnEvict func(k K, v V, reason EvictReason)

	Metrics Metrics
	Logger  logrus.FieldLogger

	// HousekeepingInterval paces background passes that finish deferred drains.
	HousekeepingInterval time.Duration

	// DrainBatch caps evictions per shard per housekeeping pass.
	DrainBatch int
}

func (o *Options[K, V]) applyDefaults() {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	if o.HousekeepingInterval == 0 {
		o.HousekeepingInterval = defaultHousekeepingInterval
	}
	if o.DrainBatch <= 0 {
		o.DrainBatch = defaultDrainBatch
	}
}

// weigh returns the entry weight, 1 when no Weigher is configured.
func (o *Options[K, V]) weigh(k K, v V) uint32 {
	if o.Weigher == nil {
		return 1
	}
	return o.Weigher(k, v)
}
