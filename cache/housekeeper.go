package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// housekeeper runs deferred drains outside callers' goroutines. It keeps a
// deduplicated set of shards awaiting a drain; each pass takes the whole set,
// hands it to pass and re-queues whatever pass reports as unfinished.
//
// One housekeeper serves the whole cache; resizes enqueue work instead of
// starting goroutines of their own.
type housekeeper struct {
	mu      sync.Mutex
	pending map[int]struct{}

	pass func(shards []int) (unfinished []int)
	log  logrus.FieldLogger

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// newHousekeeper starts the background loop unless interval is negative.
func newHousekeeper(interval time.Duration, pass func([]int) []int, log logrus.FieldLogger) *housekeeper {
	h := &housekeeper{
		pending: make(map[int]struct{}),
		pass:    pass,
		log:     log,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if interval < 0 {
		close(h.done)
		return h
	}
	go h.loop(interval)
	return h
}

func (h *housekeeper) loop(interval time.Duration) {
	defer close(h.done)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-t.C:
		case <-h.wake:
		}
		h.runPending()
	}
}

// enqueue schedules drains for the given shards and wakes the loop.
func (h *housekeeper) enqueue(shards ...int) {
	if len(shards) == 0 {
		return
	}
	h.mu.Lock()
	for _, idx := range shards {
		h.pending[idx] = struct{}{}
	}
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// pendingCount returns the number of shards awaiting a drain.
func (h *housekeeper) pendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// runPending performs one pass over the shards queued so far.
func (h *housekeeper) runPending() {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return
	}
	batch := make([]int, 0, len(h.pending))
	for idx := range h.pending {
		batch = append(batch, idx)
	}
	clear(h.pending)
	h.mu.Unlock()

	sort.Ints(batch)
	unfinished := h.pass(batch)
	h.log.WithFields(logrus.Fields{
		"shards":     len(batch),
		"unfinished": len(unfinished),
	}).Debug("housekeeping pass")
	h.enqueue(unfinished...)
}

// close stops the loop and waits for an in-flight pass to finish.
func (h *housekeeper) close() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
