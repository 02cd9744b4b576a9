// Package safetensors - Lesen und Schreiben von safetensors-Dateien
//
// Format:
// [8 Bytes: Header-Groesse (uint64 LE)]
// [Header-Groesse Bytes: JSON-Header]
// [Tensor-Daten: Rohbytes]
//
// Dieses Modul enthaelt:
// - Decode: Liest alle Tensoren in ein model.Model
// - Encode: Schreibt ein model.Model (nur Parameter + Metadaten)
// - IsSafetensors: Erkennung anhand der ersten Bytes
package safetensors

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/abdoudjigo/modelopt/model"
)

// maxHeaderSize begrenzt den JSON-Header (100 MiB)
const maxHeaderSize = 100 << 20

const metadataKey = "__metadata__"

// ErrInvalid wird bei einem beschaedigten Header zurueckgegeben
var ErrInvalid = errors.New("invalid safetensors file")

type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// IsSafetensors prueft die ersten Bytes: Header-Groesse gefolgt von '{'
func IsSafetensors(b []byte) bool {
	if len(b) < 9 {
		return false
	}
	n := binary.LittleEndian.Uint64(b[:8])
	return n > 1 && n <= maxHeaderSize && b[8] == '{'
}

// Decode liest eine safetensors-Datei. Die Tensor-Reihenfolge folgt den
// Daten-Offsets in der Datei.
func Decode(rs io.ReadSeeker) (*model.Model, error) {
	var headerSize uint64
	if err := binary.Read(rs, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("%w: failed to read header size: %v", ErrInvalid, err)
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("%w: header size %d too large", ErrInvalid, headerSize)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(rs, header); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrInvalid, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse header: %v", ErrInvalid, err)
	}

	m := model.New("safetensors")
	if b, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(b, &m.Metadata); err != nil {
			return nil, fmt.Errorf("%w: failed to parse metadata: %v", ErrInvalid, err)
		}
		delete(raw, metadataKey)
	}

	type entry struct {
		name string
		tensorInfo
	}

	entries := make([]entry, 0, len(raw))
	for name, b := range raw {
		var info tensorInfo
		if err := json.Unmarshal(b, &info); err != nil {
			return nil, fmt.Errorf("%w: tensor %s: %v", ErrInvalid, name, err)
		}
		entries = append(entries, entry{name, info})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.DataOffsets[0], b.DataOffsets[0]), cmp.Compare(a.name, b.name))
	})

	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	dataOffset := int64(8 + headerSize)
	for _, e := range entries {
		dtype := model.DType(e.DType)
		size := e.DataOffsets[1] - e.DataOffsets[0]
		if dtype.Size() == 0 {
			return nil, fmt.Errorf("%w: tensor %s: unsupported dtype %s", ErrInvalid, e.name, e.DType)
		}
		want, err := model.ShapeBytes(e.Shape, dtype)
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %s: %v", ErrInvalid, e.name, err)
		}
		if size < 0 || size != int64(want) {
			return nil, fmt.Errorf("%w: tensor %s: data offsets %v do not match shape %v", ErrInvalid, e.name, e.DataOffsets, e.Shape)
		}

		if e.DataOffsets[0] < 0 || dataOffset+e.DataOffsets[1] > end {
			return nil, fmt.Errorf("%w: tensor %s: data offsets %v exceed file size", ErrInvalid, e.name, e.DataOffsets)
		}

		if _, err := rs.Seek(dataOffset+e.DataOffsets[0], io.SeekStart); err != nil {
			return nil, err
		}

		b := make([]byte, size)
		if _, err := io.ReadFull(rs, b); err != nil {
			return nil, fmt.Errorf("%w: tensor %s: %v", ErrInvalid, e.name, err)
		}

		t, err := model.DecodeTensor(e.name, e.Shape, dtype, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}

		if err := m.Add(t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	return m, nil
}

// Encode schreibt m als safetensors nach w. Tensoren werden in
// Modell-Reihenfolge geschrieben; der Header ist auf 8 Bytes ausgerichtet.
func Encode(w io.Writer, m *model.Model) error {
	header := make(map[string]any, m.Len()+1)
	if len(m.Metadata) > 0 {
		header[metadataKey] = maps.Clone(m.Metadata)
	}

	var offset int64
	var data [][]byte
	for t := range m.Tensors() {
		b, err := t.Bytes()
		if err != nil {
			return fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		shape := t.Shape
		if shape == nil {
			shape = []int{}
		}

		header[t.Name] = tensorInfo{
			DType:       string(t.DType),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + int64(len(b))},
		}
		offset += int64(len(b))
		data = append(data, b)
	}

	bts, err := json.Marshal(header)
	if err != nil {
		return err
	}

	// Padding mit Leerzeichen, damit die Daten 8-Byte-ausgerichtet beginnen
	if pad := (8 - len(bts)%8) % 8; pad > 0 {
		bts = append(bts, bytes.Repeat([]byte(" "), pad)...)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(bts))); err != nil {
		return err
	}
	if _, err := w.Write(bts); err != nil {
		return err
	}

	for _, b := range data {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
