// Package ggml - Tensor Datenstrukturen
//
// Dieses Modul enthaelt Tensor-bezogene Typen und Methoden:
// - Tensor: Einzelner Tensor mit Name, Shape, Kind
// - Tensors: Collection von Tensors mit Offset
package ggml

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Tensors repraesentiert eine Sammlung von Tensors
type Tensors struct {
	items  []*Tensor
	Offset uint64
}

// Items gibt Tensors zurueck, optional gefiltert nach Prefix
func (s Tensors) Items(prefix ...string) []*Tensor {
	if len(prefix) == 0 {
		return s.items
	}

	var items []*Tensor
	for _, t := range s.items {
		if strings.HasPrefix(t.Name, prefix[0]) {
			items = append(items, t)
		}
	}

	return items
}

// Tensor repraesentiert einen einzelnen GGML-Tensor
type Tensor struct {
	Name   string `json:"name"`
	Kind   uint32 `json:"kind"`
	Offset uint64 `json:"-"`

	// Shape ist die Anzahl der Elemente in jeder Dimension,
	// innerste Dimension zuerst
	Shape []uint64 `json:"shape"`

	io.WriterTo `json:"-"`
}

// block extrahiert die Block-Nummer aus dem Tensor-Namen
func (t Tensor) block() (n int) {
	if _, err := fmt.Sscanf(t.Name, "blk.%d.", &n); err != nil {
		return math.MaxInt
	}
	return
}

// Elements gibt die Gesamtanzahl der Elemente im Tensor zurueck
func (t Tensor) Elements() uint64 {
	var count uint64 = 1
	for _, n := range t.Shape {
		count *= n
	}
	return count
}

// Size gibt die Groesse des Tensors in Bytes zurueck
func (t Tensor) Size() uint64 {
	return t.Elements() * TensorType(t.Kind).TypeSize()
}

// Type gibt den Typ-Namen als String zurueck
func (t Tensor) Type() string {
	return TensorType(t.Kind).String()
}
