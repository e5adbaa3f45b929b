// Package cache provides a generic, sharded in-memory cache whose capacity
// can be changed while it serves traffic.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by its own
//     lock. The shard count is fixed at construction and is a power of two.
//
//   - Capacity: Options.MaxCapacity is a Bound in weighted units (see
//     Options.Weigher). The total is split so that shard bounds always sum to
//     it exactly: each shard gets total/n and the first total%n shards get
//     one more unit (SplitCapacity).
//
//   - Capacity cells: each shard keeps its bound in a cell read with a single
//     atomic load on every admission decision; only resizes serialize.
//
//   - Resizing: SetMaxCapacity installs new bounds on every shard, rebuilds
//     the frequency sketch of each shard whose bound changed, and evicts the
//     excess of shrunk shards either on the caller's goroutine (Blocking) or
//     over later housekeeping passes (Deferred). IncreaseMaxCapacity only
//     grows the cache and never evicts. A capacity increase is effective at
//     once; after a decrease a shard may briefly stay above its new bound
//     until its drain finishes.
//
//   - Eviction: victims come from the configured policy (LRU by default,
//     2Q in policy/twoq). Entries evicted by a resize reach Options.OnEvict
//     with EvictCapacity, the same reason as any size-based eviction.
//
//   - Admission: with Options.Admission set, a TinyLFU filter keeps a new key
//     out of a full shard unless the sketch rates it above the victim.
//
//   - Metrics: Options.Metrics receives hit/miss/eviction/size signals plus
//     capacity changes; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    MaxCapacity: cache.Bounded(10_000),
//	})
//	defer c.Close()
//	c.Set("a", []byte("1"))
//
//	// Shrink and wait until every shard fits.
//	_ = c.SetMaxCapacity(cache.Bounded(1_000), cache.Blocking)
//
//	// Grow again; never evicts.
//	_ = c.IncreaseMaxCapacity(cache.Bounded(5_000))
//
//	fmt.Println(c.Policy().MaxCapacity()) // 5000
package cache
