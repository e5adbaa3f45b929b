// Package policy defines the contract between a shard and its eviction policy.
package policy

// Unbounded is passed to ShardPolicy.Resize when the shard has no capacity bound.
const Unbounded = ^uint64(0)

// Node is the minimal contract a cache entry must satisfy for a policy.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
}

// Hooks expose O(1) list operations that a policy can use to manipulate
// the shard's intrusive MRU/LRU list. Implementations are provided by the shard.
//
// Concurrency: all hook calls happen under the shard lock.
// Hooks manage only the list; the shard owns the key->node map.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at MRU (used on admission).
	PushFront(Node[K, V])
	// Remove detaches the node from the list.
	Remove(Node[K, V])
	// Back returns the current LRU node (or nil if empty).
	Back() Node[K, V]
	// Len returns the number of resident nodes in the shard.
	Len() int
}

// ShardPolicy is a per-shard eviction policy instance bound to shard hooks.
// All methods are invoked under the shard lock.
//
// Semantics:
//   - OnAdd may return an eviction candidate (e.g., LRU of a probation queue).
//     The shard evicts that node and subsequently calls OnRemove for it.
//   - OnGet/OnUpdate typically promote the node.
//   - OnRemove updates policy-internal state; the shard performs deletion.
//   - Victim names the entry the shard should evict next when it is over
//     capacity, or nil if the shard is empty. It must not modify the list.
//   - Resize tells the policy the shard's new capacity (Unbounded if none),
//     so capacity-derived internal sizes follow runtime resizes.
type ShardPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V]) (evict Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
	Victim() Node[K, V]
	Resize(capacity uint64)
}

// Policy is a factory that creates shard-local policy instances bound to a
// particular shard's hooks and initial capacity.
type Policy[K comparable, V any] interface {
	New(h Hooks[K, V], capacity uint64) ShardPolicy[K, V]
}
