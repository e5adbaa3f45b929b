package cache

import (
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/flexcache/internal/flight"
	"github.com/IvanBrykalov/flexcache/internal/util"
	"github.com/IvanBrykalov/flexcache/policy/lru"
)

// cache is a sharded in-memory KV store with a pluggable eviction policy
// and a runtime-mutable capacity.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt *Options[K, V]

	// total is the logical capacity; shard bounds always sum to it.
	total capacityCell
	// resizeMu serializes resize calls from validation through sketch resize.
	resizeMu sync.Mutex

	// drains coalesces concurrent drains of the same shard.
	drains flight.Group[int, int]
	hk     *housekeeper
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Policy   -> LRU
//   - Shards <= 0  -> auto, rounded up to the next power of two
//   - see Options for the rest
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}
	opt.applyDefaults()

	n := opt.Shards
	if n <= 0 {
		n = util.ReasonableShardCount()
	} else {
		n = int(util.NextPow2(uint64(n)))
	}

	c := &cache[K, V]{
		shards: make([]*shard[K, V], n),
		hash:   util.Hash[K],
		opt:    &opt,
	}
	for i, b := range SplitCapacity(opt.MaxCapacity, n) {
		c.shards[i] = newShard(i, b, c.opt)
	}
	c.total.init(opt.MaxCapacity)
	c.hk = newHousekeeper(opt.HousekeepingInterval, c.housekeepingPass,
		opt.Logger.WithField("component", "housekeeper"))

	opt.Metrics.Capacity(opt.MaxCapacity)
	return c
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent.
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	h := c.hash(k)
	return c.shardFor(h).Add(k, h, v, c.opt.weigh(k, v))
}

// Set inserts or updates k→v.
func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	h := c.hash(k)
	c.shardFor(h).Set(k, h, v, c.opt.weigh(k, v))
}

// Get returns the value for k and a presence flag.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	h := c.hash(k)
	return c.shardFor(h).Get(k, h)
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(c.hash(k)).Remove(k)
}

// Len returns the total number of resident entries across all shards.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// WeightedSize returns the total resident weight across all shards.
func (c *cache[K, V]) WeightedSize() uint64 {
	var total uint64
	for _, s := range c.shards {
		total += s.WeightedSize()
	}
	return total
}

// Close marks the cache closed and stops the housekeeper.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	c.hk.close()
	return nil
}

// shardFor picks the shard for a key hash.
func (c *cache[K, V]) shardFor(h uint64) *shard[K, V] {
	return c.shards[util.ShardIndex(h, len(c.shards))]
}
