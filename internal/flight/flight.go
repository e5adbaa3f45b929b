// Package flight coalesces concurrent calls for the same key.
package flight

import "sync"

// Group runs fn at most once per key at a time. Callers arriving while a
// call for the key is in flight wait for it and receive its result.
//
// Concurrency notes:
//   - The first caller for a key becomes the leader and runs fn.
//   - Publishing the result happens-before close(done), so followers
//     observe the final value after <-done.
//   - A follower that joined late may receive a result computed against
//     state it did not see; callers that need a fresh result re-check and
//     call Do again.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
}

// Do runs fn for key unless a call is already in flight, in which case it
// waits for that call. shared reports whether the result came from another
// caller's run.
func (g *Group[K, V]) Do(key K, fn func() V) (v V, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.val, true
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	c.val = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return c.val, false
}

// InFlight reports whether a call for key is currently running.
func (g *Group[K, V]) InFlight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}
