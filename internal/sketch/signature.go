// Package sketch builds fixed-length set signatures whose slot-wise agreement
// estimates Jaccard similarity.
//
// Two signers are provided. MinHash keeps, per slot, the minimum of a
// slot-specific hash over the set. The Fill Sketch assigns each token to a
// slot in rounds using two independent hash families and keeps the minimum
// round-tagged value per slot, which costs a constant number of hashes per
// token once the set is larger than the sketch. Both produce a Signature.
package sketch

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidLength is returned when a signer is created with a non-positive length.
	ErrInvalidLength = errors.New("sketch: length must be positive")

	// ErrIncomparable is returned when two signatures differ in kind, seeds or length.
	ErrIncomparable = errors.New("sketch: signatures are not comparable")
)

// Kind identifies the signer that produced a signature.
type Kind uint8

const (
	KindMinHash Kind = iota + 1
	KindFill
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMinHash:
		return "minhash"
	case KindFill:
		return "fill"
	default:
		return "unknown"
	}
}

// ParseKind parses "minhash" or "fill" (also "fss").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minhash", "":
		return KindMinHash, nil
	case "fill", "fss", "fillsketch", "fill_sketch":
		return KindFill, nil
	default:
		return 0, fmt.Errorf("sketch: unknown sketch type %q", s)
	}
}

// Family describes everything two signatures must share to be compared.
type Family struct {
	Kind   Kind
	Seeds  [2]uint64
	Length int
}

// String renders the family for error messages.
func (f Family) String() string {
	if f.Kind == KindFill {
		return fmt.Sprintf("%s(len=%d, seeds=%d,%d)", f.Kind, f.Length, f.Seeds[0], f.Seeds[1])
	}
	return fmt.Sprintf("%s(len=%d, seed=%d)", f.Kind, f.Length, f.Seeds[0])
}

// Signature is an immutable signature.
type Signature struct {
	family Family
	values []uint64
}

// FromValues wraps a copy of values as a signature of family f.
// The family length is taken from values.
func FromValues(f Family, values []uint64) Signature {
	f.Length = len(values)
	v := make([]uint64, len(values))
	copy(v, values)
	return Signature{family: f, values: v}
}

// Family returns the signature family.
func (s Signature) Family() Family { return s.family }

// Len returns the number of slots.
func (s Signature) Len() int { return len(s.values) }

// At returns slot i.
func (s Signature) At(i int) uint64 { return s.values[i] }

// Values returns a copy of the slots.
func (s Signature) Values() []uint64 {
	v := make([]uint64, len(s.values))
	copy(v, s.values)
	return v
}

// AppendValues appends the slots to dst.
func (s Signature) AppendValues(dst []uint64) []uint64 {
	return append(dst, s.values...)
}

// IsEmpty reports whether the signature was built from an empty token set.
func (s Signature) IsEmpty() bool {
	for _, v := range s.values {
		if v != math.MaxUint64 {
			return false
		}
	}
	return true
}

// Equal reports whether both signatures have the same family and slots.
func (s Signature) Equal(o Signature) bool {
	if s.family != o.family || len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Comparable returns ErrIncomparable unless o shares the family of s.
func (s Signature) Comparable(o Signature) error {
	if s.family != o.family {
		return fmt.Errorf("%w: %s vs %s", ErrIncomparable, s.family, o.family)
	}
	return nil
}

// Similarity returns the fraction of equal slots.
func (s Signature) Similarity(o Signature) (float64, error) {
	if err := s.Comparable(o); err != nil {
		return 0, err
	}
	if len(s.values) == 0 {
		return 0, nil
	}
	match := 0
	for i, v := range s.values {
		if v == o.values[i] {
			match++
		}
	}
	return float64(match) / float64(len(s.values)), nil
}

// Signer turns a token set into a signature. Implementations are safe for
// concurrent use once constructed.
type Signer interface {
	Sign(tokens []string) Signature
	Family() Family
}
