package rng

import (
	crand "crypto/rand"
	"encoding/binary"
)

// SecureFloat64 returns a cryptographically strong draw in [0, 1). Unlike a
// seeded stream it is never reproducible, so it must not feed anything that
// is part of the persisted-state contract (rotation, rewards, spoilage).
func SecureFloat64() float64 {
	var b [8]byte
	crand.Read(b[:])
	return float64(binary.BigEndian.Uint64(b[:])>>11) / float64(1<<53)
}

// SecureBetween returns a cryptographically strong integer draw in
// [min, max], inclusive on both ends.
func SecureBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(SecureFloat64()*float64(max-min+1))
}
