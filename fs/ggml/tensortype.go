// tensortype.go - GGML TensorType Definitionen
// Enthaelt: TensorType Konstanten, Groessen und Abbildung auf model.DType

package ggml

import (
	"fmt"

	"github.com/abdoudjigo/modelopt/model"
)

// TensorType ist aequivalent zu ggml_type. Nur unquantisierte Typen
// werden gelesen und geschrieben, quantisierte Bloecke sind ein Fehler.
type TensorType uint32

const (
	TensorTypeF32  TensorType = 0
	TensorTypeF16  TensorType = 1
	TensorTypeI8   TensorType = 24
	TensorTypeI16  TensorType = 25
	TensorTypeI32  TensorType = 26
	TensorTypeI64  TensorType = 27
	TensorTypeF64  TensorType = 28
	TensorTypeBF16 TensorType = 30
)

// TypeSize gibt die Byte-Groesse pro Element zurueck, 0 fuer nicht
// unterstuetzte Typen
func (t TensorType) TypeSize() uint64 {
	switch t {
	case TensorTypeI8:
		return 1
	case TensorTypeF16, TensorTypeBF16, TensorTypeI16:
		return 2
	case TensorTypeF32, TensorTypeI32:
		return 4
	case TensorTypeF64, TensorTypeI64:
		return 8
	default:
		return 0
	}
}

// String gibt die String-Repraesentation des TensorType zurueck
func (t TensorType) String() string {
	if d, err := t.DType(); err == nil {
		return string(d)
	}
	return "unknown"
}

// DType bildet den GGML-Typ auf den Speicher-Typ des Modells ab
func (t TensorType) DType() (model.DType, error) {
	switch t {
	case TensorTypeF32:
		return model.DTypeF32, nil
	case TensorTypeF16:
		return model.DTypeF16, nil
	case TensorTypeBF16:
		return model.DTypeBF16, nil
	case TensorTypeF64:
		return model.DTypeF64, nil
	case TensorTypeI8:
		return model.DTypeI8, nil
	case TensorTypeI16:
		return model.DTypeI16, nil
	case TensorTypeI32:
		return model.DTypeI32, nil
	case TensorTypeI64:
		return model.DTypeI64, nil
	default:
		return "", fmt.Errorf("unsupported tensor type %d", uint32(t))
	}
}

// TensorTypeOf ist die Umkehrung von TensorType.DType
func TensorTypeOf(d model.DType) (TensorType, error) {
	switch d {
	case model.DTypeF32:
		return TensorTypeF32, nil
	case model.DTypeF16:
		return TensorTypeF16, nil
	case model.DTypeBF16:
		return TensorTypeBF16, nil
	case model.DTypeF64:
		return TensorTypeF64, nil
	case model.DTypeI8:
		return TensorTypeI8, nil
	case model.DTypeI16:
		return TensorTypeI16, nil
	case model.DTypeI32:
		return TensorTypeI32, nil
	case model.DTypeI64:
		return TensorTypeI64, nil
	default:
		return 0, fmt.Errorf("dtype %s has no gguf tensor type", d)
	}
}
