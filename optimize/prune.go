// prune.go - Magnitude-Pruning
// Enthaelt: Prune, pruneTensor
package optimize

import (
	"math"

	"github.com/abdoudjigo/modelopt/model"
)

// Prune setzt in jedem Linear- und Conv2d-Layer die betragskleinsten
// Gewichte auf 0. ratio ist der Anteil, der erhalten bleiben soll.
//
// Die Schwelle ist das (1-ratio)-Perzentil der Betraege; erhalten bleibt
// nur, was echt groesser ist. Gewichte gleich der Schwelle fallen weg,
// ein Layer mit lauter gleichen Betraegen wird also komplett 0.
func Prune(m *model.Model, ratio float64) error {
	if err := validateRatio(ratio); err != nil {
		return err
	}

	for _, l := range m.Layers() {
		if !l.Prunable() || !l.Weight.IsFloat() {
			continue
		}
		pruneTensor(l.Weight.Data, ratio)
		pruneTensor(l.Weight.Data64, ratio)
	}
	return nil
}

func pruneTensor[T model.Float](data []T, ratio float64) {
	if len(data) == 0 {
		return
	}

	abs := make([]float64, len(data))
	for i, v := range data {
		abs[i] = math.Abs(float64(v))
	}

	threshold := Percentile(abs, 100*(1-ratio))
	for i, a := range abs {
		if !(a > threshold) {
			data[i] = 0
		}
	}
}
