package cache

// drainToBound evicts policy victims one at a time until the shard's
// weighted size fits its bound or the shard is empty. The bound is re-read
// before every eviction, so a drain started for an older bound converges on
// whatever bound is current when it stops. The shard lock is taken per
// victim; ordinary operations interleave with a long drain.
//
// limit caps the number of evictions (<= 0: no cap). It reports whether the
// shard converged.
func (s *shard[K, V]) drainToBound(limit int) (evicted int, converged bool) {
	for limit <= 0 || evicted < limit {
		if s.evictOne() {
			return evicted, true
		}
		evicted++
	}
	return evicted, s.withinBound()
}

// evictOne evicts a single victim if the shard is over its bound. It returns
// true when there is nothing left to evict.
func (s *shard[K, V]) evictOne() (done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capacity.Load().Exceeds(s.weighted) {
		return true
	}
	victim := s.pol.Victim()
	if victim == nil {
		return true
	}
	s.evictNode(victim.(*node[K, V]), EvictCapacity)
	s.opt.Metrics.Size(s.idx, s.len, s.weighted)
	return false
}

// withinBound reports whether the shard needs no further draining.
func (s *shard[K, V]) withinBound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len == 0 || !s.capacity.Load().Exceeds(s.weighted)
}

// drainShard drains shard idx. Concurrent drains of the same shard (a
// blocking resize and a housekeeping pass, or two resizes) share one run.
// limit <= 0 keeps draining until the shard converges; a positive limit
// bounds the work of this call. It reports whether the shard converged.
func (c *cache[K, V]) drainShard(idx, limit int) bool {
	s := c.shards[idx]
	for {
		c.drains.Do(idx, func() int {
			n, _ := s.drainToBound(limit)
			return n
		})
		if s.withinBound() {
			return true
		}
		if limit > 0 {
			return false
		}
	}
}
