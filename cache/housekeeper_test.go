package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

type passRecorder struct {
	mu      sync.Mutex
	batches [][]int
	// unfinished is returned once per shard index, then cleared.
	unfinished map[int]bool
}

func (r *passRecorder) pass(shards []int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]int(nil), shards...))
	var out []int
	for _, idx := range shards {
		if r.unfinished[idx] {
			delete(r.unfinished, idx)
			out = append(out, idx)
		}
	}
	return out
}

func (r *passRecorder) passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// Repeated enqueues of one shard collapse into a single drain.
func TestHousekeeper_Dedup(t *testing.T) {
	t.Parallel()

	rec := &passRecorder{}
	h := newHousekeeper(-1, rec.pass, logrus.New())
	t.Cleanup(h.close)

	h.enqueue(2, 0, 2, 1, 0)
	if h.pendingCount() != 3 {
		t.Fatalf("pending = %d, want 3", h.pendingCount())
	}
	h.runPending()
	if len(rec.batches) != 1 || len(rec.batches[0]) != 3 {
		t.Fatalf("batches = %v", rec.batches)
	}
	for i, idx := range []int{0, 1, 2} {
		if rec.batches[0][i] != idx {
			t.Fatalf("batch must be in shard order, got %v", rec.batches[0])
		}
	}

	// An empty queue does not call pass.
	h.runPending()
	if rec.passes() != 1 {
		t.Fatalf("passes = %d, want 1", rec.passes())
	}
}

// Unfinished shards are carried into the next pass.
func TestHousekeeper_Requeue(t *testing.T) {
	t.Parallel()

	rec := &passRecorder{unfinished: map[int]bool{1: true}}
	h := newHousekeeper(-1, rec.pass, logrus.New())
	t.Cleanup(h.close)

	h.enqueue(0, 1)
	h.runPending()
	if h.pendingCount() != 1 {
		t.Fatalf("pending after first pass = %d, want 1", h.pendingCount())
	}
	h.runPending()
	if h.pendingCount() != 0 {
		t.Fatalf("pending after second pass = %d, want 0", h.pendingCount())
	}
	if got := rec.batches[1]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("second batch = %v, want [1]", got)
	}
}

// The background loop picks up work without RunPendingTasks and stops on close.
func TestHousekeeper_BackgroundLoop(t *testing.T) {
	t.Parallel()

	rec := &passRecorder{}
	h := newHousekeeper(time.Hour, rec.pass, logrus.New())

	h.enqueue(3)
	waitFor(t, func() bool { return rec.passes() == 1 })

	h.close()
	h.close()
	h.enqueue(4)
	time.Sleep(10 * time.Millisecond)
	if rec.passes() != 1 {
		t.Fatal("closed housekeeper must not run passes")
	}
}
