package util

import "runtime"

// ReasonableShardCount picks a default shard count from CPU parallelism:
// nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index.
// The high bits are used so the low bits stay independent for the sketch.
// Power-of-two counts take the mask path; other counts fall back to modulo.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	h := hash>>32 | hash<<32
	if IsPowerOfTwo(uint64(shards)) {
		return int(h & uint64(shards-1))
	}
	return int(h % uint64(shards))
}
