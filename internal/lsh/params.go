// Package lsh implements the banding index that turns signatures into
// candidate pairs.
//
// The standard scheme splits a signature of length b*r into b bands of r
// rows and reports a pair when any band matches. The amplified scheme nests
// that construction: b1 bands of r1 rows form a unit (OR), r2 units form a
// group (AND) and b2 groups are OR'ed, which sharpens the collision curve
// around the threshold for the same signature length.
package lsh

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrParamsMismatch is returned when b1*r1*b2*r2 differs from the signature length.
	ErrParamsMismatch = errors.New("lsh: band parameters do not match signature length")

	// ErrInvalidParams is returned for non-positive band or row counts.
	ErrInvalidParams = errors.New("lsh: band and row counts must be positive")
)

// Params configures the banding index. Bands holds (b1, b2) and Rows holds
// (r1, r2). The standard scheme is Bands=(b,1), Rows=(r,1).
type Params struct {
	Bands [2]int
	Rows  [2]int
}

// Standard returns the single-level configuration of b bands with r rows.
func Standard(b, r int) Params {
	return Params{Bands: [2]int{b, 1}, Rows: [2]int{r, 1}}
}

// Amplified returns the two-level configuration.
func Amplified(b1, r1, b2, r2 int) Params {
	return Params{Bands: [2]int{b1, b2}, Rows: [2]int{r1, r2}}
}

// Length is the signature length the configuration consumes.
func (p Params) Length() int {
	return p.Bands[0] * p.Rows[0] * p.Bands[1] * p.Rows[1]
}

// IsAmplified reports whether the second level does any work.
func (p Params) IsAmplified() bool {
	return p.Bands[1] != 1 || p.Rows[1] != 1
}

// Validate checks the counts and that they consume exactly length slots.
func (p Params) Validate(length int) error {
	for _, v := range [...]int{p.Bands[0], p.Bands[1], p.Rows[0], p.Rows[1]} {
		if v <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidParams, p)
		}
	}
	if p.Length() != length {
		return fmt.Errorf("%w: %s uses %d slots, signature has %d", ErrParamsMismatch, p, p.Length(), length)
	}
	return nil
}

// Probability returns the chance that two items with Jaccard similarity s
// become a candidate pair: 1-(1-(1-(1-s^r1)^b1)^r2)^b2.
func (p Params) Probability(s float64) float64 {
	unit := 1 - math.Pow(1-math.Pow(s, float64(p.Rows[0])), float64(p.Bands[0]))
	return 1 - math.Pow(1-math.Pow(unit, float64(p.Rows[1])), float64(p.Bands[1]))
}

// Threshold approximates the similarity at which the collision curve is
// steepest for the standard scheme, (1/b)^(1/r).
func (p Params) Threshold() float64 {
	return math.Pow(1/float64(p.Bands[0]), 1/float64(p.Rows[0]))
}

func (p Params) String() string {
	if !p.IsAmplified() {
		return fmt.Sprintf("b=%d r=%d", p.Bands[0], p.Rows[0])
	}
	return fmt.Sprintf("b1=%d r1=%d b2=%d r2=%d", p.Bands[0], p.Rows[0], p.Bands[1], p.Rows[1])
}

// MarshalJSON encodes the parameters as [[b1,b2],[r1,r2]].
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]int{p.Bands, p.Rows})
}

// UnmarshalJSON decodes [[b1,b2],[r1,r2]].
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw [2][2]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lsh: decode params: %w", err)
	}
	p.Bands, p.Rows = raw[0], raw[1]
	return nil
}

// MarshalYAML encodes the parameters the same way as JSON.
func (p Params) MarshalYAML() (interface{}, error) {
	return [][]int{p.Bands[:], p.Rows[:]}, nil
}
