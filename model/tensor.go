// tensor.go - Parameter-Tensoren im Speicher
// Enthält: DType, Tensor, NewTensor, NewTensor64, NewRawTensor, Elements, ShapeElements
package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DType ist der Speicher-Datentyp eines Tensors im Container-Format.
// F32, F16 und BF16 liegen im Speicher als float32 vor, F64 als float64.
// Ganzzahl-Tensoren (z.B. num_batches_tracked) werden als Rohbytes
// durchgereicht.
type DType string

const (
	DTypeF32  DType = "F32"
	DTypeF16  DType = "F16"
	DTypeBF16 DType = "BF16"
	DTypeF64  DType = "F64"

	DTypeI8   DType = "I8"
	DTypeI16  DType = "I16"
	DTypeI32  DType = "I32"
	DTypeI64  DType = "I64"
	DTypeU8   DType = "U8"
	DTypeBool DType = "BOOL"
)

// Size gibt die Byte-Groesse eines Elements zurueck, 0 fuer unbekannte Typen
func (d DType) Size() int {
	switch d {
	case DTypeI8, DTypeU8, DTypeBool:
		return 1
	case DTypeF16, DTypeBF16, DTypeI16:
		return 2
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF64, DTypeI64:
		return 8
	default:
		return 0
	}
}

// IsFloat gibt zurueck, ob der Typ ein Gleitkomma-Typ ist
func (d DType) IsFloat() bool {
	switch d {
	case DTypeF32, DTypeF16, DTypeBF16, DTypeF64:
		return true
	default:
		return false
	}
}

// ErrShape wird fuer Shapes mit negativen Dimensionen oder zu vielen
// Elementen zurueckgegeben
var ErrShape = errors.New("invalid shape")

// Float sind die Elementtypen der Gleitkomma-Daten im Speicher
type Float interface {
	~float32 | ~float64
}

// Tensor ist ein benannter, mehrdimensionaler Parameter in Row-Major-Ordnung.
// Genau eins von Data (F32, F16, BF16), Data64 (F64) und Raw (sonstige
// Typen) ist gesetzt.
type Tensor struct {
	Name   string
	Shape  []int
	DType  DType
	Data   []float32
	Data64 []float64
	Raw    []byte
}

// NewTensor erstellt einen float32-Tensor und prueft, dass data zur shape passt
func NewTensor(name string, shape []int, dtype DType, data []float32) (*Tensor, error) {
	if !dtype.IsFloat() || dtype == DTypeF64 {
		return nil, fmt.Errorf("tensor %s: unsupported dtype %q", name, dtype)
	}
	if err := checkElements(name, shape, len(data)); err != nil {
		return nil, err
	}
	return &Tensor{Name: name, Shape: slices.Clone(shape), DType: dtype, Data: data}, nil
}

// NewTensor64 erstellt einen F64-Tensor ohne Genauigkeitsverlust
func NewTensor64(name string, shape []int, data []float64) (*Tensor, error) {
	if err := checkElements(name, shape, len(data)); err != nil {
		return nil, err
	}
	return &Tensor{Name: name, Shape: slices.Clone(shape), DType: DTypeF64, Data64: data}, nil
}

func checkElements(name string, shape []int, got int) error {
	n, err := ShapeElements(shape)
	if err != nil {
		return fmt.Errorf("tensor %s: %w", name, err)
	}
	if n != got {
		return fmt.Errorf("tensor %s: shape %v needs %d elements, got %d", name, shape, n, got)
	}
	return nil
}

// NewRawTensor erstellt einen Nicht-Gleitkomma-Tensor aus Little-Endian-Rohbytes
func NewRawTensor(name string, shape []int, dtype DType, raw []byte) (*Tensor, error) {
	if dtype.IsFloat() || dtype.Size() == 0 {
		return nil, fmt.Errorf("tensor %s: unsupported raw dtype %q", name, dtype)
	}
	n, err := ShapeBytes(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	if n != len(raw) {
		return nil, fmt.Errorf("tensor %s: shape %v needs %d bytes, got %d", name, shape, n, len(raw))
	}
	return &Tensor{Name: name, Shape: slices.Clone(shape), DType: dtype, Raw: raw}, nil
}

// IsFloat gibt zurueck, ob der Tensor Gleitkomma-Werte enthaelt
func (t *Tensor) IsFloat() bool {
	return t.DType.IsFloat()
}

// Dims gibt die Anzahl der Dimensionen zurueck
func (t *Tensor) Dims() int {
	return len(t.Shape)
}

// Elements gibt die Anzahl der Elemente zurueck
func (t *Tensor) Elements() int {
	return Elements(t.Shape)
}

// Float64s gibt die Gleitkomma-Werte als float64-Kopie zurueck, nil fuer
// Rohdaten-Tensoren
func (t *Tensor) Float64s() []float64 {
	if t.Data64 != nil {
		return slices.Clone(t.Data64)
	}
	if t.Data == nil {
		return nil
	}

	f64s := make([]float64, len(t.Data))
	for i, v := range t.Data {
		f64s[i] = float64(v)
	}
	return f64s
}

// Zeros zaehlt die Gleitkomma-Elemente mit Wert 0
func (t *Tensor) Zeros() int {
	return zeros(t.Data) + zeros(t.Data64)
}

func zeros[T Float](data []T) (n int) {
	for _, v := range data {
		if v == 0 {
			n++
		}
	}
	return n
}

// Sparsity ist der Anteil der Null-Elemente
func (t *Tensor) Sparsity() float64 {
	n := len(t.Data) + len(t.Data64)
	if n == 0 {
		return 0
	}
	return float64(t.Zeros()) / float64(n)
}

// Clone gibt eine tiefe Kopie zurueck
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Name:   t.Name,
		Shape:  slices.Clone(t.Shape),
		DType:  t.DType,
		Data:   slices.Clone(t.Data),
		Data64: slices.Clone(t.Data64),
		Raw:    slices.Clone(t.Raw),
	}
}

// Elements berechnet die Elementanzahl einer bereits geprueften Shape.
// Eine leere Shape ist ein Skalar.
func Elements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// ShapeElements berechnet die Elementanzahl einer Shape aus einer Datei.
// Negative Dimensionen und ein Ueberlauf ergeben ErrShape.
func ShapeElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("%w: %v has too many elements", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

// ShapeBytes berechnet die Byte-Groesse einer Shape im Typ dtype
func ShapeBytes(shape []int, dtype DType) (int, error) {
	n, err := ShapeElements(shape)
	if err != nil {
		return 0, err
	}

	size := dtype.Size()
	if size == 0 {
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
	if n > math.MaxInt/size {
		return 0, fmt.Errorf("%w: %v has too many bytes", ErrShape, shape)
	}
	return n * size, nil
}
