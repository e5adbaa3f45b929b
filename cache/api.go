package cache

import "errors"

// ErrClosed is returned by capacity operations on a closed cache.
var ErrClosed = errors.New("cache: closed")

// ResizeMode selects how SetMaxCapacity brings shards under a smaller bound.
type ResizeMode int

const (
	// Blocking drains shrunk shards on the caller's goroutine before returning.
	Blocking ResizeMode = iota
	// Deferred returns once the bound is installed; the housekeeper drains
	// shrunk shards over one or more later passes.
	Deferred
)

func (m ResizeMode) String() string {
	if m == Blocking {
		return "blocking"
	}
	return "deferred"
}

// Cache is a sharded, in-memory key/value cache whose capacity can change
// while it is in use. All methods are safe for concurrent use.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// Returns false if the key exists or the entry was not admitted.
	Add(k K, v V) bool

	// Set inserts or updates k→v. A new entry may be dropped by admission
	// or when it alone outweighs its shard's capacity.
	Set(k K, v V)

	// Get returns the value for k and a presence flag.
	Get(k K) (V, bool)

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Len returns the number of resident entries across all shards.
	Len() int

	// WeightedSize returns the sum of resident entry weights.
	WeightedSize() uint64

	// IncreaseMaxCapacity raises the total capacity to capacity. A target
	// that is not larger than the current capacity is a no-op.
	IncreaseMaxCapacity(capacity Bound) error

	// SetMaxCapacity sets the total capacity in either direction. When a
	// shard's bound shrinks, its excess entries are evicted with
	// EvictCapacity according to mode.
	SetMaxCapacity(capacity Bound, mode ResizeMode) error

	// Policy exposes the capacity configuration currently in force.
	Policy() Policy

	// RunPendingTasks runs one housekeeping pass on the caller's goroutine.
	RunPendingTasks()

	// Close stops the housekeeper. Later resizes return ErrClosed and
	// data operations are ignored.
	Close() error
}

// Policy is a read-only view of the cache's capacity.
type Policy interface {
	// MaxCapacity returns the total capacity.
	MaxCapacity() Bound
	// ShardCapacities returns the per-shard bounds in shard order.
	ShardCapacities() []Bound
	// NumShards returns the fixed number of shards.
	NumShards() int
}
