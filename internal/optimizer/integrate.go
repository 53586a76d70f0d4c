package optimizer

import (
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/ludo-technologies/simdup/internal/lsh"
)

// quadrature holds Gauss-Legendre nodes and weights on [0, 1].
type quadrature struct {
	x, w []float64
}

// newQuadrature returns a rule exact for polynomials up to degree.
// An n-point rule integrates degree 2n-1 exactly.
func newQuadrature(degree int) quadrature {
	n := degree/2 + 1
	q := quadrature{x: make([]float64, n), w: make([]float64, n)}
	quad.Legendre{}.FixedLocations(q.x, q.w, 0, 1)
	return q
}

// integrate approximates the integral of f over [a, b].
func (q quadrature) integrate(f func(float64) float64, a, b float64) float64 {
	width := b - a
	if width <= 0 {
		return 0
	}
	var sum float64
	for i, x := range q.x {
		sum += q.w[i] * f(a+width*x)
	}
	return sum * width
}

// falsePositive is the area under the collision curve below the threshold.
func (q quadrature) falsePositive(p lsh.Params, threshold float64) float64 {
	return q.integrate(p.Probability, 0, threshold)
}

// falseNegative is the area above the collision curve past the threshold.
func (q quadrature) falseNegative(p lsh.Params, threshold float64) float64 {
	return q.integrate(func(s float64) float64 { return 1 - p.Probability(s) }, threshold, 1)
}

// WeightedError returns the weighted error of p together with its FP and
// FN components.
func WeightedError(p lsh.Params, threshold, fpWeight, fnWeight float64) (errValue, fp, fn float64) {
	q := newQuadrature(p.Length())
	fp = q.falsePositive(p, threshold)
	fn = q.falseNegative(p, threshold)
	return fp*fpWeight + fn*fnWeight, fp, fn
}
