// report.go - Ergebnis eines Optimierungs-Laufs
// Enthaelt: Report, TensorStats, rmse
package optimize

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/model"
)

// TensorStats beschreibt einen Tensor nach der Optimierung
type TensorStats struct {
	Name      string
	Shape     []int
	DType     model.DType
	Quantized bool
	Pruned    bool

	// Sparsity ist der Anteil der Null-Elemente nach dem Lauf
	Sparsity float64

	// RMSE ist die Abweichung zum Original, NaN ohne erfasste Originalwerte
	RMSE float64
}

// Report ist das Ergebnis eines erfolgreichen Laufs
type Report struct {
	RunID   uuid.UUID
	Input   string
	Output  string
	Format  loader.Format
	Options Options

	Tensors    []TensorStats
	Parameters uint64
	Quantized  int
	Pruned     int

	// Sparsity ist der nach Elementanzahl gewichtete Mittelwert ueber
	// alle Gleitkomma-Tensoren
	Sparsity float64

	Duration time.Duration
}

// newReport sammelt die Statistiken. originals enthaelt die Werte vor
// dem Lauf und darf nil sein.
func newReport(m *model.Model, pruned map[string]bool, originals map[string][]float64) *Report {
	r := &Report{Parameters: m.Parameters()}

	var sparsity, weights []float64
	for t := range m.Tensors() {
		s := TensorStats{
			Name:      t.Name,
			Shape:     t.Shape,
			DType:     t.DType,
			Quantized: Quantizable(t),
			Pruned:    pruned[t.Name],
			Sparsity:  t.Sparsity(),
			RMSE:      math.NaN(),
		}
		if orig, ok := originals[t.Name]; ok {
			s.RMSE = rmse(orig, t.Float64s())
		}

		if s.Quantized {
			r.Quantized++
		}
		if s.Pruned {
			r.Pruned++
		}
		if t.IsFloat() && t.Elements() > 0 {
			sparsity = append(sparsity, s.Sparsity)
			weights = append(weights, float64(t.Elements()))
		}
		r.Tensors = append(r.Tensors, s)
	}

	if len(sparsity) > 0 {
		r.Sparsity = stat.Mean(sparsity, weights)
	}
	return r
}

// rmse berechnet die Wurzel der mittleren quadratischen Abweichung
func rmse(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.NaN()
	}
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}
