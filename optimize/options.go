// Package optimize - Quantisierung, Pruning und die Optimierungs-Pipeline
//
// Hauptkomponenten:
// - Options: Unveraenderliche Einstellungen pro Lauf
// - Quantize: Uniforme affine Quantisierung pro Tensor (quantize.go)
// - Prune: Magnitude-Pruning von Linear/Conv2d-Gewichten (prune.go)
// - Run: Laden, Quantisieren, Prunen, Speichern (pipeline.go)
package optimize

import (
	"errors"
	"fmt"
)

const (
	// DefaultQuantLevel und DefaultRatio gelten ausserhalb des Shadow-Modus
	DefaultQuantLevel = 8
	DefaultRatio      = 0.9

	// ShadowQuantLevel und ShadowRatio komprimieren aggressiver
	ShadowQuantLevel = 4
	ShadowRatio      = 0.7

	// MaxQuantLevel begrenzt die Anzahl der Stufen auf 2^16
	MaxQuantLevel = 16
)

// ErrInvalidOptions wird bei Werten ausserhalb der erlaubten Bereiche zurueckgegeben
var ErrInvalidOptions = errors.New("invalid options")

// Options ist der Konfigurations-Snapshot eines Laufs. Wird einmal
// erstellt und als Wert weitergegeben.
type Options struct {
	ShadowMode bool

	// QuantLevel ist die Bit-Anzahl, das Gitter hat 2^QuantLevel Stufen
	QuantLevel int

	// CompressionRatio ist der Anteil der Gewichte, die das Pruning ueberleben
	CompressionRatio float64
}

// OptionsFor gibt die Standard-Einstellungen fuer den Modus zurueck
func OptionsFor(shadow bool) Options {
	if shadow {
		return Options{ShadowMode: true, QuantLevel: ShadowQuantLevel, CompressionRatio: ShadowRatio}
	}
	return Options{QuantLevel: DefaultQuantLevel, CompressionRatio: DefaultRatio}
}

// Validate prueft die Wertebereiche
func (o Options) Validate() error {
	if err := validateLevel(o.QuantLevel); err != nil {
		return err
	}
	return validateRatio(o.CompressionRatio)
}

func validateLevel(level int) error {
	if level < 1 || level > MaxQuantLevel {
		return fmt.Errorf("%w: quant level %d not in [1, %d]", ErrInvalidOptions, level, MaxQuantLevel)
	}
	return nil
}

func validateRatio(ratio float64) error {
	// NaN faellt durch beide Vergleiche, daher negiert pruefen
	if !(ratio > 0 && ratio <= 1) {
		return fmt.Errorf("%w: compression ratio %v not in (0, 1]", ErrInvalidOptions, ratio)
	}
	return nil
}
