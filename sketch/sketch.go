// Package sketch implements the popularity estimator used for TinyLFU
// admission: a count-min sketch of 4-bit saturating counters whose table
// size is derived from a capacity bound.
package sketch

import (
	"math/bits"

	"github.com/IvanBrykalov/flexcache/internal/util"
)

const (
	// MaxTableSize caps the table at 64Ki words (512 KiB, one million counters).
	// Unbounded capacities map to this size.
	MaxTableSize = 1 << 16

	// sampleFactor controls how many increments happen before counters age.
	sampleFactor = 10

	maxCount = 15

	// resetMask clears the high bit of every 4-bit counter after a shift.
	resetMask = 0x7777777777777777
	// oneMask selects the low bit of every 4-bit counter.
	oneMask = 0x1111111111111111
)

var seeds = [4]uint64{
	0xc3a5c85c97cb3127,
	0xb492b66fbe98f273,
	0x9ae16a3b2f90404f,
	0xcbf29ce484222325,
}

// TableSize returns the number of 64-bit words a sketch needs for a capacity
// of max entries (or MaxTableSize when unbounded). The result is a power of
// two in [1, MaxTableSize] and grows monotonically with max.
func TableSize(max uint64, bounded bool) int {
	if !bounded {
		return MaxTableSize
	}
	return int(util.ClampPow2(max, MaxTableSize))
}

// Sketch is a count-min sketch of depth four. Each 64-bit word holds sixteen
// 4-bit counters; a key touches one counter in each of four words.
// When the number of recorded increments reaches the sample size, every
// counter is halved so stale popularity decays.
//
// A Sketch is not safe for concurrent use.
type Sketch struct {
	table      []uint64
	mask       uint64
	size       int
	sampleSize int
}

// New returns a sketch with tableSize words; tableSize must be a power of two.
func New(tableSize int) *Sketch {
	if tableSize < 1 || !util.IsPowerOfTwo(uint64(tableSize)) {
		panic("sketch: table size must be a positive power of two")
	}
	return &Sketch{
		table:      make([]uint64, tableSize),
		mask:       uint64(tableSize - 1),
		sampleSize: sampleFactor * tableSize,
	}
}

// Len returns the table size in words.
func (s *Sketch) Len() int { return len(s.table) }

// Increment records one access of the key with hash h.
func (s *Sketch) Increment(h uint64) {
	h = spread(h)
	start := (h & 3) << 2
	added := false
	for i := 0; i < 4; i++ {
		idx := s.indexOf(h, i)
		added = s.incrementAt(idx, int(start)+i) || added
	}
	if added {
		s.size++
		if s.size >= s.sampleSize {
			s.reset()
		}
	}
}

// Frequency returns the estimated number of recent accesses of the key with
// hash h, in [0, 15].
func (s *Sketch) Frequency(h uint64) int {
	h = spread(h)
	start := (h & 3) << 2
	freq := maxCount
	for i := 0; i < 4; i++ {
		idx := s.indexOf(h, i)
		shift := uint((int(start) + i) << 2)
		c := int((s.table[idx] >> shift) & 0xf)
		if c < freq {
			freq = c
		}
	}
	return freq
}

func (s *Sketch) indexOf(h uint64, i int) int {
	x := (h + seeds[i]) * seeds[i]
	x += x >> 32
	return int(x & s.mask)
}

// incrementAt bumps counter j of word idx unless it is saturated.
func (s *Sketch) incrementAt(idx, j int) bool {
	shift := uint(j << 2)
	m := uint64(0xf) << shift
	if s.table[idx]&m == m {
		return false
	}
	s.table[idx] += 1 << shift
	return true
}

// reset halves every counter.
func (s *Sketch) reset() {
	odd := 0
	for i, w := range s.table {
		odd += bits.OnesCount64(w & oneMask)
		s.table[i] = (w >> 1) & resetMask
	}
	s.size = (s.size - odd/4) / 2
}

func spread(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}
