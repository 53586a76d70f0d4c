package sketch

import (
	"math"

	"github.com/ludo-technologies/simdup/internal/tabhash"
)

// FillSketcher builds Fill Sketch signatures.
//
// Token x is thrown in rounds i = 0, 1, ... . In rounds i < L the bin is
// h1(x, i) mod L, in rounds L <= i < 2L the bin is i-L, so every bin is
// filled after at most 2L rounds. The thrown value is i<<32 | h2(x, i)>>32,
// ordered by round first. A bin keeps the minimum value it receives, which
// makes the result independent of token order. Rounds stop at the first
// round boundary where every bin holds a value.
type FillSketcher struct {
	length int
	bins   tabhash.Hasher
	values tabhash.Hasher
}

var _ Signer = (*FillSketcher)(nil)

// NewFillSketcher creates a signer from the two family seeds.
func NewFillSketcher(length int, seeds [2]uint64) (*FillSketcher, error) {
	return NewFillSketcherWithHashers(length,
		tabhash.NewMixedTabulation(seeds[0]),
		tabhash.NewMixedTabulation(seeds[1]))
}

// NewFillSketcherWithHashers creates a signer from existing hashers.
func NewFillSketcherWithHashers(length int, bins, values tabhash.Hasher) (*FillSketcher, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &FillSketcher{length: length, bins: bins, values: values}, nil
}

// Sign computes the signature of tokens. An empty set yields an empty
// signature (every slot at math.MaxUint64).
func (fs *FillSketcher) Sign(tokens []string) Signature {
	slots, _ := fs.fill(fingerprintSet(tokens))
	return FromValues(fs.Family(), slots)
}

// fill returns the slots and the number of rounds it ran.
func (fs *FillSketcher) fill(xs []uint32) ([]uint64, int) {
	l := fs.length
	slots := make([]uint64, l)
	for i := range slots {
		slots[i] = math.MaxUint64
	}
	if len(xs) == 0 {
		return slots, 0
	}

	filled := 0
	round := 0
	for ; round < 2*l && filled < l; round++ {
		i := uint32(round)
		for _, x := range xs {
			var bin int
			if round < l {
				bin = int(fs.bins.Hash(x, i) % uint64(l))
			} else {
				bin = round - l
			}
			v := uint64(i)<<32 | fs.values.Hash(x, i)>>32
			if slots[bin] == math.MaxUint64 {
				filled++
			}
			if v < slots[bin] {
				slots[bin] = v
			}
		}
	}
	return slots, round
}

// Family returns the family of every signature this signer produces.
func (fs *FillSketcher) Family() Family {
	return Family{
		Kind:   KindFill,
		Seeds:  [2]uint64{fs.bins.Seed(), fs.values.Seed()},
		Length: fs.length,
	}
}
