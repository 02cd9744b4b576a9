// Package ggml - GGUF Decode Operations
//
// Dieses Modul enthaelt Funktionen zum Lesen von GGUF-Dateien:
// - containerGGUF: Container-Struktur fuer GGUF-Header
// - gguf: Hauptstruktur fuer GGUF-Modelle
// - Decode: Deserialisierung von KV-Paaren und Tensor-Infos
package ggml

import (
	"encoding/binary"
	"fmt"
	"io"
)

// containerGGUF repraesentiert den GGUF-Header mit Versionsinformationen
type containerGGUF struct {
	ByteOrder binary.ByteOrder
	Version   uint32

	V1 struct {
		NumTensor uint32
		NumKV     uint32
	}

	V2 struct {
		NumTensor uint64
		NumKV     uint64
	}

	V3 struct {
		NumTensor uint64
		NumKV     uint64
	}
}

// Name gibt den Container-Namen zurueck
func (c *containerGGUF) Name() string {
	return "gguf"
}

// Decode liest den GGUF-Header und dekodiert das Modell
func (c *containerGGUF) Decode(rs io.ReadSeeker) (ggufModel, error) {
	if err := binary.Read(rs, c.ByteOrder, &c.Version); err != nil {
		return nil, err
	}

	var err error
	switch c.Version {
	case 1:
		err = binary.Read(rs, c.ByteOrder, &c.V1)
	case 2:
		err = binary.Read(rs, c.ByteOrder, &c.V2)
	default:
		err = binary.Read(rs, c.ByteOrder, &c.V3)
	}
	if err != nil {
		return nil, err
	}

	g := newGGUF(c)
	if err := g.Decode(rs); err != nil {
		return nil, err
	}

	return g, nil
}

// gguf repraesentiert ein geladenes GGUF-Modell
type gguf struct {
	*containerGGUF

	kv      KV
	tensors []*Tensor

	tensorOffset uint64

	scratch [16 << 10]byte
}

// newGGUF erstellt eine neue gguf-Instanz
func newGGUF(container *containerGGUF) *gguf {
	return &gguf{
		containerGGUF: container,
		kv:            make(KV),
	}
}

// KV gibt die Key-Value Paare zurueck
func (g *gguf) KV() KV {
	return g.kv
}

// Tensors gibt die Tensor-Liste zurueck
func (g *gguf) Tensors() Tensors {
	return Tensors{
		items:  g.tensors,
		Offset: g.tensorOffset,
	}
}

// numTensor gibt die Tensor-Anzahl zurueck (versionsabhaengig)
func (g *gguf) numTensor() uint64 {
	switch g.Version {
	case 1:
		return uint64(g.V1.NumTensor)
	case 2:
		return g.V2.NumTensor
	default:
		return g.V3.NumTensor
	}
}

// numKV gibt die KV-Anzahl zurueck (versionsabhaengig)
func (g *gguf) numKV() uint64 {
	switch g.Version {
	case 1:
		return uint64(g.V1.NumKV)
	case 2:
		return g.V2.NumKV
	default:
		return g.V3.NumKV
	}
}

// Decode liest KV-Paare und Tensor-Infos aus dem Reader
func (g *gguf) Decode(rs io.ReadSeeker) error {
	for i := 0; uint64(i) < g.numKV(); i++ {
		k, err := readGGUFString(g, rs)
		if err != nil {
			return err
		}

		t, err := readGGUF[uint32](g, rs)
		if err != nil {
			return err
		}

		var v any
		switch t {
		case ggufTypeUint8:
			v, err = readGGUF[uint8](g, rs)
		case ggufTypeInt8:
			v, err = readGGUF[int8](g, rs)
		case ggufTypeUint16:
			v, err = readGGUF[uint16](g, rs)
		case ggufTypeInt16:
			v, err = readGGUF[int16](g, rs)
		case ggufTypeUint32:
			v, err = readGGUF[uint32](g, rs)
		case ggufTypeInt32:
			v, err = readGGUF[int32](g, rs)
		case ggufTypeUint64:
			v, err = readGGUF[uint64](g, rs)
		case ggufTypeInt64:
			v, err = readGGUF[int64](g, rs)
		case ggufTypeFloat32:
			v, err = readGGUF[float32](g, rs)
		case ggufTypeFloat64:
			v, err = readGGUF[float64](g, rs)
		case ggufTypeBool:
			v, err = readGGUF[bool](g, rs)
		case ggufTypeString:
			v, err = readGGUFString(g, rs)
		case ggufTypeArray:
			v, err = readGGUFArray(g, rs)
		default:
			return fmt.Errorf("invalid type: %d", t)
		}

		if err != nil {
			return err
		}
		g.kv[k] = v
	}

	if err := g.decodeTensors(rs); err != nil {
		return err
	}

	alignment := g.kv.Uint("general.alignment", 32)

	offset, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	g.tensorOffset = uint64(offset + ggufPadding(offset, int64(alignment)))
	return nil
}

// decodeTensors liest alle Tensor-Metadaten
func (g *gguf) decodeTensors(rs io.ReadSeeker) error {
	for range g.numTensor() {
		name, err := readGGUFString(g, rs)
		if err != nil {
			return fmt.Errorf("failed to read tensor name: %w", err)
		}

		dims, err := readGGUF[uint32](g, rs)
		if err != nil {
			return fmt.Errorf("failed to read tensor dimensions: %w", err)
		}
		if dims > 8 {
			return fmt.Errorf("tensor %s: too many dimensions: %d", name, dims)
		}

		shape := make([]uint64, dims)
		for i := range shape {
			shape[i], err = readGGUF[uint64](g, rs)
			if err != nil {
				return fmt.Errorf("failed to read tensor shape: %w", err)
			}
		}

		kind, err := readGGUF[uint32](g, rs)
		if err != nil {
			return fmt.Errorf("failed to read tensor kind: %w", err)
		}

		offset, err := readGGUF[uint64](g, rs)
		if err != nil {
			return fmt.Errorf("failed to read tensor offset: %w", err)
		}

		g.tensors = append(g.tensors, &Tensor{
			Name:   name,
			Kind:   kind,
			Offset: offset,
			Shape:  shape,
		})
	}
	return nil
}
