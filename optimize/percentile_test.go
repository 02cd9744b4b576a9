package optimize

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	ten := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

	// Erwartete Werte entsprechen numpy.percentile(x, p)
	cases := []struct {
		x    []float64
		p    float64
		want float64
	}{
		{[]float64{1, 2, 3, 4}, 50, 2.5},
		{ten, 0, 1},
		{ten, 100, 10},
		{ten, 10, 1.9},
		{ten, 25, 3.25},
		{[]float64{0, 10}, 90, 9},
		{[]float64{7}, 30, 7},
		{[]float64{3, 3, 3}, 10, 3},
	}

	for _, tt := range cases {
		if got := Percentile(tt.x, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Percentile(%v, %v) = %v, erwartet %v", tt.x, tt.p, got, tt.want)
		}
	}

	if ten[0] != 10 {
		t.Error("Percentile darf die Eingabe nicht sortieren")
	}
	if !math.IsNaN(Percentile(nil, 50)) {
		t.Error("erwartet NaN fuer leere Eingabe")
	}
}
