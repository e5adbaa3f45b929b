// Package lru implements the LRU eviction policy.
package lru

import "github.com/IvanBrykalov/flexcache/policy"

// lru is a classic "move-to-front" Least-Recently-Used policy.
// It delegates list manipulation to policy.Hooks provided by the shard.
type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type lruPolicy[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard LRU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return lruPolicy[K, V]{} }

// New implements policy.Policy. LRU keeps no capacity-derived state.
func (lruPolicy[K, V]) New(h policy.Hooks[K, V], _ uint64) policy.ShardPolicy[K, V] {
	return &lru[K, V]{h: h}
}

// OnAdd places the new entry at MRU. The shard enforces capacity.
func (p *lru[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *lru[K, V]) OnGet(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry to MRU.
func (p *lru[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

func (p *lru[K, V]) OnRemove(_ policy.Node[K, V]) {}

// Victim is the least recently used entry.
func (p *lru[K, V]) Victim() policy.Node[K, V] { return p.h.Back() }

func (p *lru[K, V]) Resize(uint64) {}
