// Command bench runs a synthetic workload against the cache while its
// capacity changes, and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/IvanBrykalov/flexcache/cache"
	pmet "github.com/IvanBrykalov/flexcache/metrics/prom"
	"github.com/IvanBrykalov/flexcache/policy/twoq"
	"github.com/IvanBrykalov/flexcache/pressure"
)

func main() {
	// ---- Flags ----
	var (
		capacity  = flag.Uint64("cap", 100_000, "initial cache capacity (entries); 0 = unbounded")
		shards    = flag.Int("shards", 0, "number of shards (0=auto)")
		policy    = flag.String("policy", "lru", "eviction policy: lru | 2q")
		admission = flag.Bool("admission", false, "enable TinyLFU admission")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		resizeEvery = flag.Duration("resize_every", 0, "alternate capacity between -resize_min and -cap on this period; 0 = off")
		resizeMin   = flag.Uint64("resize_min", 10_000, "low capacity used by the resize driver")
		resizeMode  = flag.String("resize_mode", "deferred", "shrink mode: blocking | deferred")
		pressureOn  = flag.Bool("pressure", false, "let host memory pressure drive capacity (ignores -resize_every)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			logger.Infof("pprof: serving at %s", *pprofAddr)
			logger.Warn(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "flexcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Infof("metrics: serving at %s", *metricsAddr)
		logger.Warn(http.ListenAndServe(*metricsAddr, nil))
	}()

	mode := cache.Deferred
	switch *resizeMode {
	case "deferred":
	case "blocking":
		mode = cache.Blocking
	default:
		logger.Fatalf("unknown resize mode: %q (use blocking or deferred)", *resizeMode)
	}

	// ---- Build cache ----
	bound := cache.Unbounded()
	if *capacity > 0 {
		bound = cache.Bounded(*capacity)
	}
	opt := cache.Options[string, string]{
		MaxCapacity: bound,
		Shards:      *shards,
		Admission:   *admission,
		Metrics:     metrics,
		Logger:      logger,
	}
	switch *policy {
	case "lru":
		// nil => LRU by default
	case "2q":
		opt.Policy = twoq.New[string, string](0.25, 0.5)
	default:
		logger.Fatalf("unknown policy: %q (use lru or 2q)", *policy)
	}
	c := cache.New[string, string](opt)
	defer func() { _ = c.Close() }()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = int(*capacity / 2)
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Set(k, "v"+strconv.Itoa(i))
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total, resizes uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup

	// ---- Capacity driver ----
	switch {
	case *pressureOn && *capacity > 0:
		ctl, err := pressure.New(c, pressure.Config{
			Max:      *capacity,
			Min:      *resizeMin,
			Interval: time.Second,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctl.Run(ctx); err != nil {
				logger.WithError(err).Warn("pressure controller stopped")
			}
		}()
	case *resizeEvery > 0:
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTicker(*resizeEvery)
			defer t.Stop()
			low := true
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
				var err error
				if low {
					err = c.SetMaxCapacity(cache.Bounded(*resizeMin), mode)
				} else {
					err = c.IncreaseMaxCapacity(bound)
				}
				if err != nil {
					logger.WithError(err).Warn("resize failed")
					return
				}
				atomic.AddUint64(&resizes, 1)
				low = !low
			}
		}()
	}

	start := time.Now()
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, ok := c.Get(keyByZipf()); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					k := keyByZipf()
					c.Set(k, "v"+strconv.Itoa(localR.Int()))
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("policy=%s cap=%v shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		*policy, bound, c.Policy().NumShards(), workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("resizes=%d  max_capacity=%v  Len()=%d  WeightedSize()=%d\n",
		atomic.LoadUint64(&resizes), c.Policy().MaxCapacity(), c.Len(), c.WeightedSize())
}
