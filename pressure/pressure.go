// Package pressure adjusts a cache's capacity to host memory pressure.
//
// A Controller samples memory usage on an interval. Above the high
// watermark it shrinks the cache by a fraction of its current capacity
// (never below Min) with a deferred resize, so the sampling goroutine never
// waits on eviction. Below the low watermark it grows the cache back toward
// Max.
package pressure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/IvanBrykalov/flexcache/cache"
)

// ErrInvalidConfig is returned by New for inconsistent settings.
var ErrInvalidConfig = errors.New("pressure: invalid config")

// MemoryReader returns the share of memory in use, in percent.
type MemoryReader func(ctx context.Context) (float64, error)

// SystemMemory reads host memory usage via gopsutil.
func SystemMemory(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("pressure: read memory: %w", err)
	}
	return vm.UsedPercent, nil
}

// Resizer is the part of cache.Cache the controller drives.
type Resizer interface {
	SetMaxCapacity(capacity cache.Bound, mode cache.ResizeMode) error
	IncreaseMaxCapacity(capacity cache.Bound) error
	Policy() cache.Policy
}

// Config configures a Controller. Zero values get defaults in New.
type Config struct {
	// Max is the capacity used when memory is plentiful. Required.
	Max uint64
	// Min is the floor for shrinking.
	Min uint64

	// High and Low are memory-usage watermarks in percent (default 85 / 70).
	High float64
	Low  float64

	// Step is the fraction of capacity removed or restored per tick (default 0.25).
	Step float64

	// Interval between samples in Run (default 5s).
	Interval time.Duration

	// Read samples memory usage (default SystemMemory).
	Read MemoryReader

	Logger logrus.FieldLogger
}

func (c *Config) applyDefaults() {
	if c.High == 0 {
		c.High = 85
	}
	if c.Low == 0 {
		c.Low = 70
	}
	if c.Step == 0 {
		c.Step = 0.25
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Read == nil {
		c.Read = SystemMemory
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
}

func (c *Config) validate() error {
	switch {
	case c.Max == 0:
		return fmt.Errorf("%w: Max must be > 0", ErrInvalidConfig)
	case c.Min > c.Max:
		return fmt.Errorf("%w: Min %d above Max %d", ErrInvalidConfig, c.Min, c.Max)
	case c.Low >= c.High:
		return fmt.Errorf("%w: Low %.1f must be below High %.1f", ErrInvalidConfig, c.Low, c.High)
	case c.Step <= 0 || c.Step >= 1:
		return fmt.Errorf("%w: Step %.2f outside (0,1)", ErrInvalidConfig, c.Step)
	}
	return nil
}

// Controller resizes one cache in response to memory pressure.
type Controller struct {
	r   Resizer
	cfg Config
	log logrus.FieldLogger
}

// New validates cfg and returns a Controller for r.
func New(r Resizer, cfg Config) (*Controller, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Controller{r: r, cfg: cfg, log: cfg.Logger.WithField("component", "pressure")}, nil
}

// Tick samples memory once and resizes if a watermark is crossed. It
// returns the capacity in force afterwards.
func (c *Controller) Tick(ctx context.Context) (cache.Bound, error) {
	used, err := c.cfg.Read(ctx)
	if err != nil {
		return c.r.Policy().MaxCapacity(), err
	}

	cur, ok := c.r.Policy().MaxCapacity().Get()
	if !ok {
		cur = c.cfg.Max
	}
	log := c.log.WithFields(logrus.Fields{"used_pct": used, "capacity": cur})

	switch {
	case used >= c.cfg.High:
		next := cur - uint64(float64(cur)*c.cfg.Step)
		if next < c.cfg.Min {
			next = c.cfg.Min
		}
		if next < cur || !c.r.Policy().MaxCapacity().IsBounded() {
			log.WithField("next", next).Info("memory pressure: shrinking cache")
			if err := c.r.SetMaxCapacity(cache.Bounded(next), cache.Deferred); err != nil {
				return c.r.Policy().MaxCapacity(), fmt.Errorf("pressure: shrink to %d: %w", next, err)
			}
		}
	case used <= c.cfg.Low && cur < c.cfg.Max:
		next := cur + uint64(float64(c.cfg.Max)*c.cfg.Step)
		if next > c.cfg.Max || next < cur {
			next = c.cfg.Max
		}
		log.WithField("next", next).Debug("memory relieved: growing cache")
		if err := c.r.IncreaseMaxCapacity(cache.Bounded(next)); err != nil {
			return c.r.Policy().MaxCapacity(), fmt.Errorf("pressure: grow to %d: %w", next, err)
		}
	}
	return c.r.Policy().MaxCapacity(), nil
}

// Run calls Tick every Interval until ctx is done. Tick errors are logged
// and do not stop the loop; ErrClosed from the cache does.
func (c *Controller) Run(ctx context.Context) error {
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if _, err := c.Tick(ctx); err != nil {
			if errors.Is(err, cache.ErrClosed) {
				return err
			}
			c.log.WithError(err).Warn("pressure tick failed")
		}
	}
}
