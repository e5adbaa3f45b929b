// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a 64-bit xxhash of common key types.
// The same value drives shard selection and the frequency sketch, so a key
// is hashed exactly once per operation.
// Supported: string, []byte, [16|32|64]byte, all int/uint widths, uintptr, fmt.Stringer.
// Other key types panic; convert them to string upstream.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])
	case [64]byte:
		return xxhash.Sum64(v[:])

	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		panic(fmt.Sprintf("util.Hash: unsupported key type %T; convert key to string", k))
	}
}

// hashUint64 hashes the 8 little-endian bytes of u without allocating.
func hashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}
