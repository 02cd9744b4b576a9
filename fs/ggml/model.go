// model.go - Bruecke zwischen GGUF und model.Model
// Enthaelt: ReadModel, WriteModel
package ggml

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"math"
	"os"

	"github.com/abdoudjigo/modelopt/model"
)

// ReadModel liest eine GGUF-Datei vollstaendig in ein model.Model.
// GGUF speichert Shapes mit der innersten Dimension zuerst, das Modell
// in Row-Major-Ordnung; die Shape wird daher umgedreht.
func ReadModel(rs io.ReadSeeker) (*model.Model, error) {
	g, err := Decode(rs)
	if err != nil {
		return nil, err
	}

	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	kv := g.KV()
	m := model.New("gguf")
	m.KV = maps.Clone(kv)
	m.Metadata = kv.Strings()

	ts := g.Tensors()
	for _, t := range ts.Items() {
		dtype, err := TensorType(t.Kind).DType()
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		shape := make([]int, len(t.Shape))
		for i, n := range t.Shape {
			if n > math.MaxInt {
				return nil, fmt.Errorf("tensor %s: %w: dimension %d too large", t.Name, model.ErrShape, n)
			}
			shape[len(shape)-1-i] = int(n)
		}

		size, err := model.ShapeBytes(shape, dtype)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		start := ts.Offset + t.Offset
		if start > uint64(end) || uint64(size) > uint64(end)-start {
			return nil, fmt.Errorf("tensor %s: data exceeds file size", t.Name)
		}
		if _, err := rs.Seek(int64(start), io.SeekStart); err != nil {
			return nil, err
		}

		b := make([]byte, size)
		if _, err := io.ReadFull(rs, b); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		mt, err := model.DecodeTensor(t.Name, shape, dtype, b)
		if err != nil {
			return nil, err
		}

		if err := m.Add(mt); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// WriteModel schreibt ein model.Model als GGUF. Die KV-Tabelle einer
// GGUF-Quelle bleibt erhalten, String-Metadaten ueberschreiben sie.
// Metadaten ohne GGUF-Namensraum (z.B. "format" aus safetensors) landen
// unter "general." statt unter dem Architektur-Prefix.
func WriteModel(f *os.File, m *model.Model) error {
	kv := make(KV, len(m.KV)+len(m.Metadata)+1)
	maps.Copy(kv, m.KV)
	if arch, ok := m.Metadata["general.architecture"]; ok {
		kv["general.architecture"] = arch
	}
	if _, ok := kv["general.architecture"]; !ok {
		kv["general.architecture"] = "unknown"
	}

	arch := kv.Architecture()
	for k, v := range m.Metadata {
		if !hasGlobalPrefix(k) && !isArchKey(k, arch) {
			k = "general." + k
		}
		kv[k] = v
	}

	var ts []*Tensor
	for t := range m.Tensors() {
		kind, err := TensorTypeOf(t.DType)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		b, err := t.Bytes()
		if err != nil {
			return fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		shape := make([]uint64, len(t.Shape))
		for i, n := range t.Shape {
			shape[len(shape)-1-i] = uint64(n)
		}

		ts = append(ts, &Tensor{
			Name:     t.Name,
			Kind:     uint32(kind),
			Shape:    shape,
			WriterTo: bytes.NewReader(b),
		})
	}

	return WriteGGUF(f, kv, ts)
}
