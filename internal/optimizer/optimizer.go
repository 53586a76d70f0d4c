// Package optimizer chooses banding parameters that minimise the weighted
// false positive and false negative area of the LSH collision curve, and
// keeps chosen parameters in a JSON cache.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/simdup/internal/lsh"
)

var (
	// ErrInvalidThreshold is returned for thresholds outside (0, 1).
	ErrInvalidThreshold = errors.New("optimizer: threshold must be in (0, 1)")

	// ErrInvalidNumPerm is returned for a non-positive signature length.
	ErrInvalidNumPerm = errors.New("optimizer: num_perm must be positive")

	// ErrInvalidWeight is returned for negative or non-finite weights.
	ErrInvalidWeight = errors.New("optimizer: weights must be finite and non-negative")

	// ErrNoCandidate is returned when no candidate could be scored.
	ErrNoCandidate = errors.New("optimizer: no parameter candidate available")
)

// Default weights used when none are given.
const (
	DefaultFPWeight = 0.5
	DefaultFNWeight = 0.5
)

// Options configures a search.
type Options struct {
	Threshold float64
	NumPerm   int
	FPWeight  float64
	FNWeight  float64
	Amplified bool
	MinR1     int

	// ExactLength scores only candidates that consume every slot, so the
	// result can always build an index over signatures of NumPerm slots.
	ExactLength bool

	// Workers bounds the parallel r1 loop; 0 means GOMAXPROCS.
	Workers int

	// Progress, when set, is called once per finished r1 value.
	Progress func(done, total int)
}

// DefaultOptions returns the options used by OptimalParams.
func DefaultOptions(threshold float64, numPerm int) Options {
	return Options{
		Threshold:   threshold,
		NumPerm:     numPerm,
		FPWeight:    DefaultFPWeight,
		FNWeight:    DefaultFNWeight,
		MinR1:       1,
		ExactLength: true,
	}
}

// Result is the outcome of a search.
type Result struct {
	Params     lsh.Params `json:"params" yaml:"params"`
	Error      float64    `json:"error" yaml:"error"`
	FP         float64    `json:"fp" yaml:"fp"`
	FN         float64    `json:"fn" yaml:"fn"`
	Enumerated int        `json:"enumerated" yaml:"enumerated"`
	Scored     int        `json:"scored" yaml:"scored"`
}

func (o Options) validate() error {
	if !(o.Threshold > 0 && o.Threshold < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, o.Threshold)
	}
	if o.NumPerm <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidNumPerm, o.NumPerm)
	}
	for _, w := range [...]float64{o.FPWeight, o.FNWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: fp=%v fn=%v", ErrInvalidWeight, o.FPWeight, o.FNWeight)
		}
	}
	return nil
}

// OptimalParams runs a search with the default options for the given inputs.
func OptimalParams(threshold float64, numPerm int, fpWeight, fnWeight float64, amplified bool, minR1 int) (Result, error) {
	opts := DefaultOptions(threshold, numPerm)
	opts.FPWeight = fpWeight
	opts.FNWeight = fnWeight
	opts.Amplified = amplified
	opts.MinR1 = minR1
	return Search(context.Background(), opts)
}

// candidate is the best result found for one r1 value.
type candidate struct {
	res   Result
	found bool
}

// Search enumerates candidates and returns the one with the smallest
// weighted error.
//
// For r1 ascending from MinR1, b0 runs from NumPerm/r1 down to 1. When
// amplified, b1 runs over the divisors of b0 and b2 over the divisors of
// b0/b1, both ascending, with r2 = b0/b1/b2; otherwise b1 = b0 and
// b2 = r2 = 1. Ties keep the first candidate in that order.
func Search(ctx context.Context, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	minR1 := max(opts.MinR1, 1)
	if minR1 > opts.NumPerm {
		return Result{}, fmt.Errorf("%w: minimum r1 %d exceeds num_perm %d", ErrNoCandidate, minR1, opts.NumPerm)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	q := newQuadrature(opts.NumPerm)
	total := opts.NumPerm - minR1 + 1
	perR1 := make([]candidate, total)
	counts := make([][2]int, total)
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r1 := minR1; r1 <= opts.NumPerm; r1++ {
		slot := r1 - minR1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perR1[slot], counts[slot] = searchR1(q, opts, r1)
			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, total)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var best Result
	found := false
	enumerated, scored := 0, 0
	for i, c := range perR1 {
		enumerated += counts[i][0]
		scored += counts[i][1]
		if c.found && (!found || c.res.Error < best.Error) {
			best = c.res
			found = true
		}
	}
	if !found {
		return Result{Enumerated: enumerated}, fmt.Errorf("%w: threshold=%v num_perm=%d amplified=%t minimum_r1=%d",
			ErrNoCandidate, opts.Threshold, opts.NumPerm, opts.Amplified, minR1)
	}
	best.Enumerated = enumerated
	best.Scored = scored
	return best, nil
}

// searchR1 scans every candidate with the given r1 and returns the first
// minimum along with the enumerated and scored counts.
func searchR1(q quadrature, opts Options, r1 int) (candidate, [2]int) {
	var best candidate
	var counts [2]int

	for b0 := opts.NumPerm / r1; b0 >= 1; b0-- {
		b1s := []int{b0}
		if opts.Amplified {
			b1s = Divisors(b0)
		}
		for _, b1 := range b1s {
			n2 := b0 / b1
			b2s := []int{1}
			if opts.Amplified {
				b2s = Divisors(n2)
			}
			for _, b2 := range b2s {
				r2 := n2 / b2
				counts[0]++
				p := lsh.Amplified(b1, r1, b2, r2)
				if opts.ExactLength && p.Length() != opts.NumPerm {
					continue
				}
				counts[1]++
				fp := q.falsePositive(p, opts.Threshold)
				fn := q.falseNegative(p, opts.Threshold)
				e := fp*opts.FPWeight + fn*opts.FNWeight
				if !best.found || e < best.res.Error {
					best = candidate{res: Result{Params: p, Error: e, FP: fp, FN: fn}, found: true}
				}
			}
		}
	}
	return best, counts
}

// ThresholdComp returns the similarity at which the collision curve of b
// bands of r rows is steepest, ((r-1)/(r*b-1))^(1/r), or 0 when r*b = 1.
func ThresholdComp(r, b int) float64 {
	den := r*b - 1
	if den == 0 {
		return 0
	}
	return math.Pow(float64(r-1)/float64(den), 1/float64(r))
}
