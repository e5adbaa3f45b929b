package util

import "math/bits"

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// NextPow2 returns the smallest power of two >= x; 0 and 1 map to 1.
// Values above 1<<63 saturate at 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	if x > 1<<63 {
		return 1 << 63
	}
	return 1 << bits.Len64(x-1)
}

// ClampPow2 returns NextPow2(x) limited to ceil, which must be a power of two.
func ClampPow2(x, ceil uint64) uint64 {
	if x >= ceil {
		return ceil
	}
	return NextPow2(x)
}
