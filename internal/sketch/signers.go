package sketch

import (
	"github.com/ludo-technologies/simdup/internal/seed"
)

// Signers holds one signer of each kind built from a single seed generator.
type Signers struct {
	MinHash *MinHasher
	Fill    *FillSketcher
}

// NewSigners draws the MinHash seed and then the two Fill Sketch seeds from
// gen, always in that order, so a master seed fixes both families.
func NewSigners(length int, gen *seed.Generator) (*Signers, error) {
	minSeed := gen.Next()
	fillSeeds := [2]uint64{gen.Next(), gen.Next()}

	mh, err := NewMinHasher(length, minSeed)
	if err != nil {
		return nil, err
	}
	fs, err := NewFillSketcher(length, fillSeeds)
	if err != nil {
		return nil, err
	}
	return &Signers{MinHash: mh, Fill: fs}, nil
}

// For returns the signer of kind k.
func (s *Signers) For(k Kind) (Signer, bool) {
	switch k {
	case KindMinHash:
		return s.MinHash, true
	case KindFill:
		return s.Fill, true
	default:
		return nil, false
	}
}
