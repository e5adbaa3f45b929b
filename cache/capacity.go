package cache

import (
	"sync"
	"sync/atomic"
)

// capacityState is an immutable snapshot installed by capacityCell.Store.
type capacityState struct {
	bound   Bound
	version uint64
}

// capacityCell holds a capacity bound read on every admission decision.
// Readers load an atomic pointer and never block; writers are serialized by
// mu and publish a fresh snapshot, so a reader never observes a torn bound.
type capacityCell struct {
	mu  sync.Mutex
	cur atomic.Pointer[capacityState]
}

func (c *capacityCell) init(b Bound) {
	c.cur.Store(&capacityState{bound: b})
}

// Load returns the installed bound.
func (c *capacityCell) Load() Bound { return c.cur.Load().bound }

// Version counts installs since init.
func (c *capacityCell) Version() uint64 { return c.cur.Load().version }

// Store installs b and returns the bound it replaced.
func (c *capacityCell) Store(b Bound) (old Bound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.cur.Load()
	c.cur.Store(&capacityState{bound: b, version: prev.version + 1})
	return prev.bound
}
