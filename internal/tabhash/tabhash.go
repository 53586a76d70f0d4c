package tabhash

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/zeebo/xxh3"
)

const (
	keyChars     = 8
	derivedChars = 4
	charValues   = 256

	// pcgStream decorrelates the second PCG word from the seed itself.
	pcgStream = 0x9e3779b97f4a7c15
)

// Hasher is a seeded hash of a 32-bit value x under a 32-bit index i.
// Implementations must be deterministic for a fixed seed and safe for
// concurrent readers.
type Hasher interface {
	Hash(x, i uint32) uint64
	Seed() uint64
}

type entry struct {
	hash    uint64
	derived uint32
}

// MixedTabulation is the software Hasher. It is immutable after construction.
type MixedTabulation struct {
	seed    uint64
	simple  [keyChars][charValues]entry
	derived [derivedChars][charValues]uint64
}

// Compile-time check
var _ Hasher = (*MixedTabulation)(nil)

// NewMixedTabulation builds the lookup tables for seed.
func NewMixedTabulation(seed uint64) *MixedTabulation {
	rng := rand.New(rand.NewPCG(seed, seed^pcgStream))
	m := &MixedTabulation{seed: seed}
	for c := 0; c < keyChars; c++ {
		for v := 0; v < charValues; v++ {
			m.simple[c][v] = entry{hash: rng.Uint64(), derived: rng.Uint32()}
		}
	}
	for c := 0; c < derivedChars; c++ {
		for v := 0; v < charValues; v++ {
			m.derived[c][v] = rng.Uint64()
		}
	}
	return m
}

// Seed returns the seed the tables were built from.
func (m *MixedTabulation) Seed() uint64 { return m.seed }

// Hash hashes the concatenation x||i.
func (m *MixedTabulation) Hash(x, i uint32) uint64 {
	return m.HashKey(Key(x, i))
}

// HashKey hashes a full 64-bit key.
func (m *MixedTabulation) HashKey(key uint64) uint64 {
	var h uint64
	var d uint32
	for c := 0; c < keyChars; c++ {
		e := m.simple[c][byte(key>>(8*c))]
		h ^= e.hash
		d ^= e.derived
	}
	for c := 0; c < derivedChars; c++ {
		h ^= m.derived[c][byte(d>>(8*c))]
	}
	return h
}

// Key concatenates x and i into one 64-bit key, each half zero-padded to 32 bits.
func Key(x, i uint32) uint64 {
	return uint64(x)<<32 | uint64(i)
}

// HashUint64 is a convenience entry point for callers holding wider integers.
// It panics when x or i does not fit in 32 bits.
func HashUint64(h Hasher, x, i uint64) uint64 {
	if x > math.MaxUint32 || i > math.MaxUint32 {
		panic(fmt.Sprintf("tabhash: input out of 32-bit range (x=%d, i=%d)", x, i))
	}
	return h.Hash(uint32(x), uint32(i))
}

// Fingerprint reduces an opaque token to the 32-bit value fed to a Hasher.
func Fingerprint(token []byte) uint32 {
	return uint32(xxh3.Hash(token))
}

// FingerprintString is Fingerprint for string tokens.
func FingerprintString(token string) uint32 {
	return uint32(xxh3.HashString(token))
}
