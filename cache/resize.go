package cache

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// resizePhase names the steps a resize call goes through.
type resizePhase int

const (
	phaseValidated resizePhase = iota
	phaseRebalanced
	phaseSketchesResized
	phaseEvictionTriggered
	phaseSkipped
	phaseCommitted
	phaseRejected
)

func (p resizePhase) String() string {
	switch p {
	case phaseValidated:
		return "validated"
	case phaseRebalanced:
		return "rebalanced"
	case phaseSketchesResized:
		return "sketches-resized"
	case phaseEvictionTriggered:
		return "eviction-triggered"
	case phaseSkipped:
		return "skipped"
	case phaseCommitted:
		return "committed"
	default:
		return "rejected"
	}
}

// IncreaseMaxCapacity raises the total capacity. It never evicts.
func (c *cache[K, V]) IncreaseMaxCapacity(capacity Bound) error {
	return c.resize(capacity, Deferred, true)
}

// SetMaxCapacity sets the total capacity in either direction.
func (c *cache[K, V]) SetMaxCapacity(capacity Bound, mode ResizeMode) error {
	return c.resize(capacity, mode, false)
}

// resize validates the target, installs the split bounds, resizes the
// sketches of changed shards and then drains shrunk shards per mode.
//
// resizeMu covers installation only: the total and every shard bound always
// come from the same call, so concurrent resizes end with exactly one
// caller's target. Draining happens after the lock is released and re-reads
// the live bound, so a superseded drain converges on the newer target.
func (c *cache[K, V]) resize(target Bound, mode ResizeMode, increaseOnly bool) error {
	log := c.opt.Logger.WithFields(logrus.Fields{"to": target.String(), "mode": mode.String()})
	if c.closed.Load() {
		log.WithField("phase", phaseRejected).Debug("resize on closed cache")
		return ErrClosed
	}

	c.resizeMu.Lock()
	current := c.total.Load()
	log = log.WithField("from", current.String())
	if target.Equal(current) || (increaseOnly && !current.Less(target)) {
		c.resizeMu.Unlock()
		log.WithField("phase", phaseCommitted).Debug("resize is a no-op")
		return nil
	}
	log.WithField("phase", phaseValidated).Debug("resize")

	changes := c.rebalance(target)
	c.total.Store(target)
	log.WithFields(logrus.Fields{"phase": phaseRebalanced, "changed": len(changes)}).Debug("resize")

	rebuilt := 0
	for _, ch := range changes {
		if c.shards[ch.idx].resizeFor(ch.to) {
			rebuilt++
		}
	}
	// Reported before unlocking so metrics see installs in order.
	c.opt.Metrics.Capacity(target)
	c.opt.Metrics.Resized(current, target)
	c.resizeMu.Unlock()
	log.WithFields(logrus.Fields{"phase": phaseSketchesResized, "rebuilt": rebuilt}).Debug("resize")

	var shrunk []int
	if !increaseOnly {
		for _, ch := range changes {
			if ch.shrunk() {
				shrunk = append(shrunk, ch.idx)
			}
		}
	}
	if len(shrunk) == 0 {
		log.WithField("phase", phaseSkipped).Debug("resize")
	} else {
		log.WithFields(logrus.Fields{"phase": phaseEvictionTriggered, "shards": len(shrunk)}).Debug("resize")
		if mode == Blocking {
			for _, idx := range shrunk {
				c.drainShard(idx, 0)
			}
		} else {
			c.hk.enqueue(shrunk...)
		}
	}

	log.WithField("phase", phaseCommitted).Info("capacity changed")
	return nil
}

// housekeepingPass drains the given shards concurrently, at most DrainBatch
// victims each, and returns the shards still over their bound.
func (c *cache[K, V]) housekeepingPass(shards []int) []int {
	var (
		g          errgroup.Group
		mu         sync.Mutex
		unfinished []int
	)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, idx := range shards {
		idx := idx
		g.Go(func() error {
			if !c.drainShard(idx, c.opt.DrainBatch) {
				mu.Lock()
				unfinished = append(unfinished, idx)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return unfinished
}

// RunPendingTasks runs one housekeeping pass on the caller's goroutine.
func (c *cache[K, V]) RunPendingTasks() { c.hk.runPending() }

// Policy returns a read-only view of the capacity configuration.
func (c *cache[K, V]) Policy() Policy { return capacityView[K, V]{c: c} }

type capacityView[K comparable, V any] struct{ c *cache[K, V] }

func (v capacityView[K, V]) MaxCapacity() Bound { return v.c.total.Load() }

func (v capacityView[K, V]) ShardCapacities() []Bound {
	out := make([]Bound, len(v.c.shards))
	for i, s := range v.c.shards {
		out[i] = s.capacity.Load()
	}
	return out
}

func (v capacityView[K, V]) NumShards() int { return len(v.c.shards) }
