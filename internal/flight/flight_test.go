package flight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Concurrent callers for one key share a single run of fn.
func TestGroup_Coalesces(t *testing.T) {
	var g Group[int, int]
	var runs atomic.Int32

	start := make(chan struct{})
	release := make(chan struct{})

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, _ := g.Do(1, func() int {
				runs.Add(1)
				<-release
				return 7
			})
			if v != 7 {
				t.Errorf("got %d, want 7", v)
			}
		}()
	}
	close(start)

	// Give followers a moment to join the leader.
	deadline := time.Now().Add(time.Second)
	for !g.InFlight(1) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := runs.Load(); got < 1 || got > callers {
		t.Fatalf("unexpected run count %d", got)
	}
	if g.InFlight(1) {
		t.Fatal("key must be released after the call")
	}
}

// Different keys never wait on each other.
func TestGroup_IndependentKeys(t *testing.T) {
	t.Parallel()

	var g Group[string, string]
	a, sharedA := g.Do("a", func() string { return "A" })
	b, sharedB := g.Do("b", func() string { return "B" })
	if a != "A" || b != "B" || sharedA || sharedB {
		t.Fatalf("got a=%q(%v) b=%q(%v)", a, sharedA, b, sharedB)
	}
}
