package cache

// node is an intrusive doubly linked list element owned by a shard.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]

	// hash of key, reused for sketch lookups when the node is a victim.
	hash uint64

	weight uint32
}

// Key returns the node key (part of policy.Node interface).
func (n *node[K, V]) Key() K { return n.key }

// Value returns a pointer to the stored value (part of policy.Node interface).
// Callers must only use it while holding the shard lock.
func (n *node[K, V]) Value() *V { return &n.val }
