package sketch

import (
	"math"

	"github.com/ludo-technologies/simdup/internal/tabhash"
)

// MinHash accumulates a MinHash signature from a stream of tokens.
// It is not safe for concurrent updates.
type MinHash struct {
	hasher tabhash.Hasher
	mins   []uint64
}

// NewMinHash creates an accumulator with length slots using the tabulation
// hash seeded with seed.
func NewMinHash(length int, seed uint64) (*MinHash, error) {
	return NewMinHashWithHasher(length, tabhash.NewMixedTabulation(seed))
}

// NewMinHashWithHasher creates an accumulator sharing an existing hasher.
func NewMinHashWithHasher(length int, h tabhash.Hasher) (*MinHash, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	mins := make([]uint64, length)
	for i := range mins {
		mins[i] = math.MaxUint64
	}
	return &MinHash{hasher: h, mins: mins}, nil
}

// Update folds token into every slot.
func (m *MinHash) Update(token []byte) {
	m.updateFingerprint(tabhash.Fingerprint(token))
}

// UpdateString is Update for string tokens.
func (m *MinHash) UpdateString(token string) {
	m.updateFingerprint(tabhash.FingerprintString(token))
}

func (m *MinHash) updateFingerprint(x uint32) {
	for p := range m.mins {
		// Slot values only ever decrease.
		if h := m.hasher.Hash(x, uint32(p)); h < m.mins[p] {
			m.mins[p] = h
		}
	}
}

// Len returns the number of slots.
func (m *MinHash) Len() int { return len(m.mins) }

// Signature snapshots the current state.
func (m *MinHash) Signature() Signature {
	return FromValues(Family{Kind: KindMinHash, Seeds: [2]uint64{m.hasher.Seed()}}, m.mins)
}

// MinHasher signs whole token sets with a shared hasher.
type MinHasher struct {
	length int
	hasher tabhash.Hasher
}

var _ Signer = (*MinHasher)(nil)

// NewMinHasher builds a MinHash signer for signatures of length slots.
func NewMinHasher(length int, seed uint64) (*MinHasher, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &MinHasher{length: length, hasher: tabhash.NewMixedTabulation(seed)}, nil
}

// Sign computes the signature of tokens. Duplicate tokens do not change it.
func (mh *MinHasher) Sign(tokens []string) Signature {
	m, _ := NewMinHashWithHasher(mh.length, mh.hasher)
	for _, x := range fingerprintSet(tokens) {
		m.updateFingerprint(x)
	}
	return m.Signature()
}

// Family returns the family of every signature this signer produces.
func (mh *MinHasher) Family() Family {
	return Family{Kind: KindMinHash, Seeds: [2]uint64{mh.hasher.Seed()}, Length: mh.length}
}

// fingerprintSet maps tokens to their distinct 32-bit fingerprints.
func fingerprintSet(tokens []string) []uint32 {
	seen := make(map[uint32]struct{}, len(tokens))
	out := make([]uint32, 0, len(tokens))
	for _, t := range tokens {
		x := tabhash.FingerprintString(t)
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
