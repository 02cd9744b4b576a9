// percentile.go - Perzentil mit linearer Interpolation
package optimize

import (
	"math"
	"slices"
)

// Percentile berechnet das p-te Perzentil (0..100) wie numpy.percentile
// mit der Standard-Methode "linear": Rang p/100*(n-1) zwischen den
// sortierten Nachbarn interpoliert. x wird nicht veraendert.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(x)
	slices.Sort(sorted)

	p = min(max(p, 0), 100)
	rank := p / 100 * float64(len(sorted)-1)
	lo := math.Floor(rank)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	return lerp(sorted[i], sorted[i+1], rank-lo)
}

// lerp interpoliert symmetrisch: ab t >= 0.5 wird von b aus gerechnet,
// damit lerp(a, b, 1) exakt b ergibt
func lerp(a, b, t float64) float64 {
	d := b - a
	if t >= 0.5 {
		return b - d*(1-t)
	}
	return a + d*t
}
