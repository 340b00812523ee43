// Package xhash provides the 64-bit component hashing primitives used by
// uitree, widget, state, and action to build the composite hashes defined
// in spec.md §3. It is grounded on the xxhash64 algorithm the original
// Fastbot3 C++ sources bundle as android/native/thirdpart/xxhash; this
// module uses the equivalent, actively maintained Go package instead of
// vendoring the C implementation.
package xhash

import "github.com/cespare/xxhash/v2"

// String hashes s to a 64-bit digest.
func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Bytes hashes b to a 64-bit digest.
func Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Bool maps a boolean to one of two fixed 64-bit digests so it can be
// folded into a composite hash the same way a string component would be.
func Bool(b bool) uint64 {
	if b {
		return String("true")
	}
	return String("false")
}

// Int hashes an integer by its decimal string form, matching how the
// other components are derived from their string representation.
func Int(n int) uint64 {
	return String(itoa(n))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Combine xor-folds a running hash with the next component, used wherever
// an unordered set of hashes needs a single representative (duplicate
// widget folding, unordered state-hash combine).
func Combine(acc, next uint64) uint64 {
	return acc ^ next
}

// CombineOrdered rotate-mixes a running hash with the next component in a
// position-sensitive way, used by the ordered state-hash combine variant
// (spec.md §3, "rotate-and-mix fold").
func CombineOrdered(acc, next uint64) uint64 {
	return rotl(acc, 1) ^ (next*0x9E3779B97F4A7C15 + 1)
}

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}
