package optimize

import (
	"errors"
	"math"
	"testing"
)

func TestOptionsFor(t *testing.T) {
	cases := []struct {
		shadow bool
		level  int
		ratio  float64
	}{
		{false, 8, 0.9},
		{true, 4, 0.7},
	}

	for _, tt := range cases {
		o := OptionsFor(tt.shadow)
		if o.ShadowMode != tt.shadow || o.QuantLevel != tt.level || o.CompressionRatio != tt.ratio {
			t.Errorf("OptionsFor(%v) = %+v, erwartet level=%d ratio=%v", tt.shadow, o, tt.level, tt.ratio)
		}
		if err := o.Validate(); err != nil {
			t.Errorf("Standard-Optionen sollten gueltig sein: %v", err)
		}
	}
}

func TestValidate(t *testing.T) {
	invalid := []Options{
		{QuantLevel: 0, CompressionRatio: 0.5},
		{QuantLevel: 17, CompressionRatio: 0.5},
		{QuantLevel: 8, CompressionRatio: 0},
		{QuantLevel: 8, CompressionRatio: 1.5},
		{QuantLevel: 8, CompressionRatio: math.NaN()},
	}
	for _, o := range invalid {
		if err := o.Validate(); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("Validate(%+v) = %v, erwartet ErrInvalidOptions", o, err)
		}
	}

	if err := (Options{QuantLevel: 16, CompressionRatio: 1}).Validate(); err != nil {
		t.Errorf("Grenzwerte sollten gueltig sein: %v", err)
	}
}
