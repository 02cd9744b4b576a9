// Package ggml - GGUF Array Handling
//
// Dieses Modul enthaelt Array-spezifische Datenstrukturen und Funktionen:
// - array[T]: Generische Array-Struktur
// - readGGUFArray: Array-Deserialisierung
// - readGGUFArrayData: Typisierte Array-Daten lesen
// - readGGUFStringsData: String-Array Deserialisierung
package ggml

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxArrayLength begrenzt Arrays in beschaedigten Dateien
const maxArrayLength = 1 << 28

// array ist eine generische Array-Struktur fuer KV-Werte
type array[T any] struct {
	values []T
}

// MarshalJSON serialisiert das Array als JSON
func (a *array[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.values)
}

// Values gibt die Array-Werte zurueck
func (a *array[T]) Values() []T {
	return a.values
}

// readGGUFArray liest ein typisiertes Array aus dem Reader
func readGGUFArray(g *gguf, r io.Reader) (any, error) {
	t, err := readGGUF[uint32](g, r)
	if err != nil {
		return nil, err
	}

	n, err := readGGUF[uint64](g, r)
	if err != nil {
		return nil, err
	}
	if n > maxArrayLength {
		return nil, fmt.Errorf("array length %d exceeds limit", n)
	}

	switch t {
	case ggufTypeUint8:
		return readGGUFArrayData[uint8](g, r, int(n))
	case ggufTypeInt8:
		return readGGUFArrayData[int8](g, r, int(n))
	case ggufTypeUint16:
		return readGGUFArrayData[uint16](g, r, int(n))
	case ggufTypeInt16:
		return readGGUFArrayData[int16](g, r, int(n))
	case ggufTypeUint32:
		return readGGUFArrayData[uint32](g, r, int(n))
	case ggufTypeInt32:
		return readGGUFArrayData[int32](g, r, int(n))
	case ggufTypeUint64:
		return readGGUFArrayData[uint64](g, r, int(n))
	case ggufTypeInt64:
		return readGGUFArrayData[int64](g, r, int(n))
	case ggufTypeFloat32:
		return readGGUFArrayData[float32](g, r, int(n))
	case ggufTypeFloat64:
		return readGGUFArrayData[float64](g, r, int(n))
	case ggufTypeBool:
		return readGGUFArrayData[bool](g, r, int(n))
	case ggufTypeString:
		return readGGUFStringsData(g, r, int(n))
	default:
		return nil, fmt.Errorf("invalid array type: %d", t)
	}
}

// readGGUFArrayData liest typisierte Array-Daten in einem Block
func readGGUFArrayData[T any](g *gguf, r io.Reader, n int) (any, error) {
	a := &array[T]{values: make([]T, n)}
	if err := binary.Read(r, g.ByteOrder, a.values); err != nil {
		return nil, err
	}
	return a, nil
}

// readGGUFStringsData liest ein String-Array
func readGGUFStringsData(g *gguf, r io.Reader, n int) (any, error) {
	a := &array[string]{values: make([]string, n)}
	for i := range a.values {
		e, err := readGGUFString(g, r)
		if err != nil {
			return nil, err
		}
		a.values[i] = e
	}
	return a, nil
}
