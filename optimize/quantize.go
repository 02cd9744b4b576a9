// quantize.go - Uniforme affine Quantisierung
// Enthaelt: Quantize, Quantizable, quantizeTensor
package optimize

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/abdoudjigo/modelopt/model"
)

// Quantizable gibt zurueck, ob ein Tensor quantisiert wird: nur
// Gleitkomma-Tensoren mit mehr als einer Dimension, Biases bleiben unveraendert.
func Quantizable(t *model.Tensor) bool {
	return t.IsFloat() && t.Dims() > 1
}

// Quantize rastet jeden quantisierbaren Tensor auf 2^level gleichmaessig
// verteilte Stufen zwischen seinem Minimum und Maximum ein. Die Tensoren
// sind unabhaengig und werden parallel bearbeitet.
func Quantize(m *model.Model, level int) error {
	if err := validateLevel(level); err != nil {
		return err
	}

	steps := float64(uint64(1)<<level - 1)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range m.Tensors() {
		if !Quantizable(t) {
			continue
		}
		g.Go(func() error {
			// nur eins von Data und Data64 ist gesetzt
			quantizeTensor(t.Data, steps)
			quantizeTensor(t.Data64, steps)
			return nil
		})
	}
	return g.Wait()
}

// quantizeTensor arbeitet in float64; Minimum und Maximum sind im
// Elementtyp exakt darstellbar, das Clamping haelt die Werte daher auch
// nach der Rueckwandlung in [min, max].
func quantizeTensor[T model.Float](data []T, steps float64) {
	if len(data) == 0 {
		return
	}

	lo, hi := float64(data[0]), float64(data[0])
	for _, v := range data[1:] {
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}

	scale := (hi - lo) / steps
	if hi == lo {
		scale = 1
	}

	for i, v := range data {
		q := math.RoundToEven((float64(v)-lo)/scale)*scale + lo
		data[i] = T(min(max(q, lo), hi))
	}
}
