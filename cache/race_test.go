package cache

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// A mixed workload of Set/Get/Add/Remove on random keys while another
// goroutine keeps resizing the cache in both directions and modes.
// Should pass under `-race` without detector reports.
func TestRace_TrafficDuringResize(t *testing.T) {
	c := impl(New[string, []byte](Options[string, []byte]{
		MaxCapacity:          Bounded(8_192),
		Shards:               32,
		HousekeepingInterval: time.Millisecond,
		DrainBatch:           64,
		Admission:            true,
	}))
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 50_000
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers + 1)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4:
					c.Remove(k)
				case 5, 6, 7, 8, 9:
					c.Add(k, []byte("x"))
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19:
					c.Set(k, []byte("x"))
				default:
					c.Get(k)
				}
			}
		}(w)
	}

	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(42))
		for time.Now().Before(deadline) {
			target := Bounded(uint64(r.Intn(16_384)))
			mode := Deferred
			if r.Intn(2) == 0 {
				mode = Blocking
			}
			if r.Intn(4) == 0 {
				_ = c.IncreaseMaxCapacity(target)
			} else {
				_ = c.SetMaxCapacity(target, mode)
			}
			_ = c.Policy().MaxCapacity()
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()

	// Once traffic stops, a blocking shrink brings every shard under its
	// bound. Going through Unbounded guarantees every shard shrinks.
	if err := c.SetMaxCapacity(Unbounded(), Blocking); err != nil {
		t.Fatal(err)
	}
	if err := c.SetMaxCapacity(Bounded(1_000), Blocking); err != nil {
		t.Fatal(err)
	}
	for i, s := range c.shards {
		b, _ := s.capacity.Load().Get()
		if w := s.WeightedSize(); w > b {
			t.Fatalf("shard %d weighted %d over bound %d", i, w, b)
		}
	}
	if c.WeightedSize() > 1_000 {
		t.Fatalf("weighted size %d over 1000", c.WeightedSize())
	}
}
