package cache

// SplitCapacity divides total across n shards in shard order. Each shard
// gets total/n; the first total%n shards get one more unit, so the parts
// always sum to total. An unbounded total leaves every shard unbounded.
//
// n must be positive: a cache without shards cannot be constructed.
func SplitCapacity(total Bound, n int) []Bound {
	if n <= 0 {
		panic("cache: capacity split across zero shards")
	}
	parts := make([]Bound, n)
	limit, ok := total.Get()
	if !ok {
		return parts
	}
	base, rem := limit/uint64(n), limit%uint64(n)
	for i := range parts {
		p := base
		if uint64(i) < rem {
			p++
		}
		parts[i] = Bounded(p)
	}
	return parts
}

// shardChange records one shard whose bound was replaced by a rebalance.
type shardChange struct {
	idx      int
	from, to Bound
}

func (c shardChange) shrunk() bool { return c.to.Less(c.from) }

// rebalance installs SplitCapacity(total) into every shard's capacity cell
// and returns the shards whose bound actually changed.
// Callers hold c.resizeMu so concurrent resizes never interleave per shard.
func (c *cache[K, V]) rebalance(total Bound) []shardChange {
	parts := SplitCapacity(total, len(c.shards))
	changes := make([]shardChange, 0, len(parts))
	for i, s := range c.shards {
		old := s.capacity.Store(parts[i])
		if !old.Equal(parts[i]) {
			changes = append(changes, shardChange{idx: i, from: old, to: parts[i]})
		}
	}
	return changes
}
