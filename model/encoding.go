// encoding.go - Konvertierung zwischen Rohbytes und Gleitkomma-Werten
// Enthält: DecodeFloats, EncodeFloats, DecodeFloat64s, EncodeFloat64s, DecodeTensor (Little-Endian)
package model

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DecodeFloats dekodiert Little-Endian-Rohbytes des Typs dtype nach float32.
// F64 wird mit DecodeFloat64s gelesen.
func DecodeFloats(b []byte, dtype DType) ([]float32, error) {
	if !dtype.IsFloat() || dtype == DTypeF64 {
		return nil, fmt.Errorf("cannot decode %s as float", dtype)
	}
	if len(b)%dtype.Size() != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of %s element size", len(b), dtype)
	}

	n := len(b) / dtype.Size()
	switch dtype {
	case DTypeF32:
		f32s := make([]float32, n)
		for i := range f32s {
			f32s[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return f32s, nil
	case DTypeF16:
		f32s := make([]float32, n)
		for i := range f32s {
			f32s[i] = float16.Frombits(binary.LittleEndian.Uint16(b[2*i:])).Float32()
		}
		return f32s, nil
	case DTypeBF16:
		return bfloat16.DecodeFloat32(b), nil
	}
	return nil, fmt.Errorf("unsupported dtype %s", dtype)
}

// EncodeFloats kodiert f32s als Little-Endian-Rohbytes des Typs dtype
func EncodeFloats(f32s []float32, dtype DType) ([]byte, error) {
	switch dtype {
	case DTypeF32:
		b := make([]byte, 4*len(f32s))
		for i, f := range f32s {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
		}
		return b, nil
	case DTypeF16:
		b := make([]byte, 2*len(f32s))
		for i, f := range f32s {
			binary.LittleEndian.PutUint16(b[2*i:], float16.Fromfloat32(f).Bits())
		}
		return b, nil
	case DTypeBF16:
		return bfloat16.EncodeFloat32(f32s), nil
	}
	return nil, fmt.Errorf("cannot encode float data as %s", dtype)
}

// DecodeFloat64s dekodiert Little-Endian-F64-Rohbytes
func DecodeFloat64s(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of %s element size", len(b), DTypeF64)
	}

	f64s := make([]float64, len(b)/8)
	for i := range f64s {
		f64s[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return f64s, nil
}

// EncodeFloat64s kodiert f64s als Little-Endian-F64-Rohbytes
func EncodeFloat64s(f64s []float64) []byte {
	b := make([]byte, 8*len(f64s))
	for i, f := range f64s {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(f))
	}
	return b
}

// DecodeTensor erstellt einen Tensor aus Little-Endian-Rohbytes im Typ
// dtype. Die Shape wird auf negative Dimensionen und Ueberlauf geprueft.
func DecodeTensor(name string, shape []int, dtype DType, b []byte) (*Tensor, error) {
	switch {
	case dtype == DTypeF64:
		f64s, err := DecodeFloat64s(b)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		return NewTensor64(name, shape, f64s)
	case dtype.IsFloat():
		f32s, err := DecodeFloats(b, dtype)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		return NewTensor(name, shape, dtype, f32s)
	default:
		return NewRawTensor(name, shape, dtype, b)
	}
}

// Bytes gibt die Little-Endian-Rohbytes des Tensors im Speicher-Datentyp zurueck
func (t *Tensor) Bytes() ([]byte, error) {
	switch {
	case t.DType == DTypeF64:
		return EncodeFloat64s(t.Data64), nil
	case t.IsFloat():
		return EncodeFloats(t.Data, t.DType)
	default:
		return t.Raw, nil
	}
}
