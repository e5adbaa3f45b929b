package cache

import (
	"sync"

	"github.com/IvanBrykalov/flexcache/internal/util"
	"github.com/IvanBrykalov/flexcache/policy"
	"github.com/IvanBrykalov/flexcache/sketch"
)

// shard is an independent partition of the cache with its own lock, map,
// intrusive list (head=MRU, tail=LRU), frequency sketch and capacity cell.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu       sync.RWMutex
	m        map[K]*node[K, V]
	head     *node[K, V] // MRU
	tail     *node[K, V] // LRU
	len      int
	weighted uint64 // sum of resident weights
	freq     *sketch.Manager
	pol      policy.ShardPolicy[K, V]

	// capacity is read without mu on every admission decision.
	capacity capacityCell

	idx int
	opt *Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

func newShard[K comparable, V any](idx int, bound Bound, opt *Options[K, V]) *shard[K, V] {
	limit, bounded := bound.Get()
	hint := 0
	if bounded && limit < 1<<16 {
		hint = int(limit)
	}
	s := &shard[K, V]{
		m:    make(map[K]*node[K, V], hint),
		freq: sketch.NewManager(limit, bounded),
		idx:  idx,
		opt:  opt,
	}
	s.capacity.init(bound)
	s.pol = opt.Policy.New(shardHooks[K, V]{s: s}, bound.limit())
	return s
}

// Add inserts a new entry; false if the key exists or was not admitted.
func (s *shard[K, V]) Add(k K, h uint64, v V, w uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.freq.Increment(h)
	if _, exists := s.m[k]; exists {
		return false
	}
	return s.insertLocked(k, h, v, w)
}

// Set inserts or updates an entry and promotes it according to the policy.
func (s *shard[K, V]) Set(k K, h uint64, v V, w uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.freq.Increment(h)
	if n, ok := s.m[k]; ok {
		old, before := n.val, s.weighted
		s.weighted += uint64(w) - uint64(n.weight)
		n.val = v
		n.weight = w
		s.pol.OnUpdate(n)
		s.notify(k, old, EvictReplaced)
		s.enforceLimitsLocked(before)
		return
	}
	s.insertLocked(k, h, v, w)
}

// Get returns the value and promotes the entry according to the policy.
// Misses are recorded in the sketch too, so a key gains popularity before
// it is admitted.
func (s *shard[K, V]) Get(k K, h uint64) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.freq.Increment(h)
	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	s.pol.OnGet(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
func (s *shard[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, k)
	s.opt.Metrics.Size(s.idx, s.len, s.weighted)
	s.notify(n.key, n.val, EvictExplicit)
	return true
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// WeightedSize returns the shard's resident weight.
func (s *shard[K, V]) WeightedSize() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weighted
}

// resizeFor brings capacity-derived state (sketch, policy sizes) in line with
// bound. It takes the shard lock, so no admission decision sees a half-built
// sketch and rebuilds of one shard's sketch never overlap.
func (s *shard[K, V]) resizeFor(bound Bound) (rebuilt bool) {
	limit, bounded := bound.Get()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pol.Resize(bound.limit())
	return s.freq.ResizeFor(limit, bounded)
}

// -------------------- internals (mu held) --------------------

// insertLocked admits a new entry unless it cannot fit at all or the
// admission filter prefers the current victim.
func (s *shard[K, V]) insertLocked(k K, h uint64, v V, w uint32) bool {
	bound := s.capacity.Load()
	if bound.Exceeds(uint64(w)) {
		return false
	}
	if s.opt.Admission && bound.Exceeds(s.weighted+uint64(w)) {
		if victim := s.pol.Victim(); victim != nil && !s.freq.Admit(h, victim.(*node[K, V]).hash) {
			return false
		}
	}

	before := s.weighted
	n := &node[K, V]{key: k, val: v, hash: h, weight: w}
	s.m[k] = n
	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictPolicy)
	}
	s.enforceLimitsLocked(before)
	return true
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
	s.weighted += uint64(n.weight)
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode unlinks n and updates counters in O(1).
func (s *shard[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
	s.weighted -= uint64(n.weight)
}

// evictNode removes the node, updates metrics/counters, and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	s.notify(n.key, n.val, reason)
}

func (s *shard[K, V]) notify(k K, v V, reason EvictReason) {
	if cb := s.opt.OnEvict; cb != nil {
		cb(k, v, reason)
	}
}

// enforceLimitsLocked evicts policy victims after a write. before is the
// shard's weight prior to the write. Normally the shard is brought down to
// its bound; a shard still over a freshly lowered bound only makes room for
// the write, and the rest of the excess is left to the queued drain.
func (s *shard[K, V]) enforceLimitsLocked(before uint64) {
	if limit, bounded := s.capacity.Load().Get(); bounded {
		target := max(limit, before)
		for s.weighted > target {
			victim := s.pol.Victim()
			if victim == nil {
				break
			}
			s.evictNode(victim.(*node[K, V]), EvictCapacity)
		}
	}
	s.opt.Metrics.Size(s.idx, s.len, s.weighted)
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K, V])      { h.s.removeNode(x.(*node[K, V])) }
func (h shardHooks[K, V]) Len() int                        { return h.s.len }

// Back returns the LRU node, or an untyped nil for an empty shard so that
// policies can compare the result with nil.
func (h shardHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
