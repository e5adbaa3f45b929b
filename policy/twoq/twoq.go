// Package twoq implements the 2Q eviction policy with queue sizes derived
// from the shard capacity.
package twoq

import (
	"container/list"
	"math"

	"github.com/IvanBrykalov/flexcache/policy"
)

// twoQ implements the 2Q eviction policy.
//
// Resident queues:
//   - A1in (younger queue): its own list + index by Node; admits first-time entries
//   - Am   (mature queue): nodes not present in inIdx; ordering is driven by shard hooks
//
// Ghost A1out: keys only, tracks recently evicted A1in keys to give them
// a second chance (bypass A1in on re-admission).
//
// Concurrency: all methods are called under the shard lock.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	inRatio    float64
	ghostRatio float64

	capIn    int
	capGhost int

	// A1in: MRU at Front() -> LRU at Back()
	inList *list.List
	inIdx  map[policy.Node[K, V]]*list.Element

	// A1out (ghosts): keys only, MRU at Front() -> LRU at Back()
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

type twoQPolicy[K comparable, V any] struct {
	inRatio    float64
	ghostRatio float64
}

// New constructs a 2Q policy factory. inRatio and ghostRatio size A1in and
// A1out as fractions of each shard's capacity (common choices: 0.25 and 0.5).
// The sizes follow the shard capacity when the cache is resized.
func New[K comparable, V any](inRatio, ghostRatio float64) policy.Policy[K, V] {
	if inRatio <= 0 || inRatio > 1 {
		inRatio = 0.25
	}
	if ghostRatio <= 0 {
		ghostRatio = 0.5
	}
	return twoQPolicy[K, V]{inRatio: inRatio, ghostRatio: ghostRatio}
}

func (p twoQPolicy[K, V]) New(h policy.Hooks[K, V], capacity uint64) policy.ShardPolicy[K, V] {
	q := &twoQ[K, V]{
		h:          h,
		inRatio:    p.inRatio,
		ghostRatio: p.ghostRatio,
		inList:     list.New(),
		inIdx:      make(map[policy.Node[K, V]]*list.Element),
		ghostList:  list.New(),
		ghostIdx:   make(map[K]*list.Element),
	}
	q.Resize(capacity)
	return q
}

// Resize rescales A1in and A1out for a new shard capacity.
// Ghosts beyond the new limit are dropped at once; A1in drains through
// Victim and OnAdd.
func (q *twoQ[K, V]) Resize(capacity uint64) {
	q.capIn = scaled(capacity, q.inRatio)
	q.capGhost = scaled(capacity, q.ghostRatio)
	q.trimGhosts()
}

// scaled returns max(1, capacity*ratio), saturating for unbounded shards.
func scaled(capacity uint64, ratio float64) int {
	if capacity == policy.Unbounded {
		return math.MaxInt
	}
	f := float64(capacity) * ratio
	if f >= math.MaxInt {
		return math.MaxInt
	}
	if f < 1 {
		return 1
	}
	return int(f)
}

// OnAdd admission rules:
//   - A key present in ghosts bypasses A1in and is admitted to Am.
//   - Otherwise it enters A1in; if A1in overflows, its LRU is proposed for eviction.
func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	k := n.Key()
	if ge, ok := q.ghostIdx[k]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(n)
		return nil
	}

	q.h.PushFront(n)
	q.inIdx[n] = q.inList.PushFront(n)

	if q.inList.Len() > q.capIn {
		if lruEl := q.inList.Back(); lruEl != nil {
			return lruEl.Value.(policy.Node[K, V])
		}
	}
	return nil
}

// OnGet promotes an A1in node to Am and moves it to MRU.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics.
func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnRemove remembers keys leaving A1in as ghosts. Removals from Am do not
// populate ghosts.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)
	q.trimGhosts()
}

// Victim prefers the A1in tail while A1in is over its share, so a shrink
// sheds one-hit entries before mature ones.
func (q *twoQ[K, V]) Victim() policy.Node[K, V] {
	if q.inList.Len() > q.capIn {
		return q.inList.Back().Value.(policy.Node[K, V])
	}
	return q.h.Back()
}

func (q *twoQ[K, V]) trimGhosts() {
	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		delete(q.ghostIdx, tail.Value.(K))
		q.ghostList.Remove(tail)
	}
}
