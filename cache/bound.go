package cache

import (
	"math"
	"strconv"
)

// Bound is an optional capacity in weighted units. The zero value is
// unbounded.
type Bound struct {
	n       uint64
	bounded bool
}

// Bounded returns a bound of n weighted units. Bounded(0) admits nothing.
func Bounded(n uint64) Bound { return Bound{n: n, bounded: true} }

// Unbounded returns the absent bound.
func Unbounded() Bound { return Bound{} }

// Get returns the bound and whether it is present.
func (b Bound) Get() (uint64, bool) { return b.n, b.bounded }

// IsBounded reports whether the bound is present.
func (b Bound) IsBounded() bool { return b.bounded }

// Equal reports whether two bounds are identical.
func (b Bound) Equal(o Bound) bool { return b == o }

// Less orders bounds with Unbounded above every finite bound.
func (b Bound) Less(o Bound) bool {
	switch {
	case !b.bounded:
		return false
	case !o.bounded:
		return true
	default:
		return b.n < o.n
	}
}

// Exceeds reports whether weight w is over the bound.
func (b Bound) Exceeds(w uint64) bool { return b.bounded && w > b.n }

// limit returns the bound as a plain number, math.MaxUint64 when unbounded.
func (b Bound) limit() uint64 {
	if !b.bounded {
		return math.MaxUint64
	}
	return b.n
}

func (b Bound) String() string {
	if !b.bounded {
		return "unbounded"
	}
	return strconv.FormatUint(b.n, 10)
}
