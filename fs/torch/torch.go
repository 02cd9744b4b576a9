// Package torch - Lesen von PyTorch state_dict Checkpoints
//
// Checkpoints sind Pickle-Dateien (Legacy-Format oder ZIP-Archiv). Die
// Deserialisierung uebernimmt gopickle; dieses Paket bildet die Tensoren
// auf model.Model ab.
//
// Unterstuetzt werden:
// - Float, Half, BFloat16, Double Storages (Gleitkomma)
// - Long und Int Storages (Rohbytes, z.B. num_batches_tracked)
// - Verschachtelte Checkpoints mit "state_dict" oder "model_state_dict"
package torch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/abdoudjigo/modelopt/model"
)

// ErrInvalid wird zurueckgegeben, wenn der Checkpoint kein state_dict enthaelt
var ErrInvalid = errors.New("invalid torch checkpoint")

// nestedKeys sind uebliche Schluessel fuer verschachtelte state_dicts
var nestedKeys = []string{"state_dict", "model_state_dict", "model"}

// Load liest einen Checkpoint von der Platte. Panics des Unpicklers bei
// beschaedigten Dateien werden als ErrInvalid gemeldet.
func Load(path string) (m *model.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()

	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fromObject(obj)
}

type entry struct {
	key   any
	value any
}

// entries liest die Eintraege eines Dicts in Einfuege-Reihenfolge
func entries(obj any) ([]entry, bool) {
	switch d := obj.(type) {
	case *types.OrderedDict:
		var es []entry
		for e := d.List.Front(); e != nil; e = e.Next() {
			if de, ok := e.Value.(*types.OrderedDictEntry); ok {
				es = append(es, entry{key: de.Key, value: de.Value})
			}
		}
		return es, true
	case *types.Dict:
		var es []entry
		for _, k := range d.Keys() {
			es = append(es, entry{key: k, value: d.MustGet(k)})
		}
		return es, true
	default:
		return nil, false
	}
}

// fromObject wandelt das deserialisierte Pickle-Objekt in ein Modell
func fromObject(obj any) (*model.Model, error) {
	es, ok := entries(obj)
	if !ok {
		return nil, fmt.Errorf("%w: top-level object is %T", ErrInvalid, obj)
	}

	es = stateDict(es)

	m := model.New("torch")
	for _, e := range es {
		name, ok := e.key.(string)
		if !ok {
			slog.Debug("skipping non-string key", "key", e.key)
			continue
		}

		pt, ok := e.value.(*pytorch.Tensor)
		if !ok {
			slog.Debug("skipping non-tensor entry", "name", name, "type", fmt.Sprintf("%T", e.value))
			continue
		}

		t, err := convert(name, pt)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		if err := m.Add(t); err != nil {
			return nil, err
		}
	}

	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: no tensors found", ErrInvalid)
	}
	return m, nil
}

// stateDict steigt in ein verschachteltes state_dict ab, wenn der
// Checkpoint z.B. zusaetzlich den Optimizer-Zustand enthaelt
func stateDict(es []entry) []entry {
	for _, k := range nestedKeys {
		for _, e := range es {
			if s, _ := e.key.(string); s == k {
				if inner, ok := entries(e.value); ok {
					slog.Debug("using nested state dict", "key", k)
					return inner
				}
			}
		}
	}
	return es
}

// convert bildet einen PyTorch-Tensor auf model.Tensor ab. Nicht
// unterstuetzte Storages werden mit einer Warnung uebersprungen (nil, nil).
func convert(name string, pt *pytorch.Tensor) (*model.Tensor, error) {
	shape := append([]int{}, pt.Size...)

	switch s := pt.Source.(type) {
	case *pytorch.FloatStorage:
		return floatTensor(name, shape, model.DTypeF32, s.Data, pt)
	case *pytorch.HalfStorage:
		return floatTensor(name, shape, model.DTypeF16, s.Data, pt)
	case *pytorch.BFloat16Storage:
		return floatTensor(name, shape, model.DTypeBF16, s.Data, pt)
	case *pytorch.DoubleStorage:
		data, err := gather(s.Data, pt.StorageOffset, pt.Size, pt.Stride)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		return model.NewTensor64(name, shape, data)
	case *pytorch.LongStorage:
		data, err := gather(s.Data, pt.StorageOffset, pt.Size, pt.Stride)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		raw := make([]byte, 0, 8*len(data))
		for _, v := range data {
			raw = binary.LittleEndian.AppendUint64(raw, uint64(v))
		}
		return model.NewRawTensor(name, shape, model.DTypeI64, raw)
	case *pytorch.IntStorage:
		data, err := gather(s.Data, pt.StorageOffset, pt.Size, pt.Stride)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		raw := make([]byte, 0, 4*len(data))
		for _, v := range data {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(v))
		}
		return model.NewRawTensor(name, shape, model.DTypeI32, raw)
	default:
		slog.Warn("skipping tensor with unsupported storage", "name", name, "storage", fmt.Sprintf("%T", pt.Source))
		return nil, nil
	}
}

func floatTensor(name string, shape []int, dtype model.DType, storage []float32, pt *pytorch.Tensor) (*model.Tensor, error) {
	data, err := gather(storage, pt.StorageOffset, pt.Size, pt.Stride)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return model.NewTensor(name, shape, dtype, data)
}

// gather kopiert die Elemente einer (evtl. nicht zusammenhaengenden)
// Sicht auf den Storage in Row-Major-Ordnung. Ohne Strides gilt die
// Sicht als zusammenhaengend.
func gather[T any](data []T, offset int, size, stride []int) ([]T, error) {
	n := model.Elements(size)
	if n == 0 {
		return []T{}, nil
	}

	if len(stride) == 0 {
		stride = contiguous(size)
	}
	if len(stride) != len(size) {
		return nil, fmt.Errorf("stride %v does not match size %v", stride, size)
	}

	last := offset
	for i, d := range size {
		if stride[i] < 0 {
			return nil, fmt.Errorf("negative stride %v", stride)
		}
		last += (d - 1) * stride[i]
	}
	if offset < 0 || last >= len(data) {
		return nil, fmt.Errorf("view exceeds storage of %d elements", len(data))
	}

	out := make([]T, n)
	index := make([]int, len(size))
	pos := offset
	for i := range out {
		out[i] = data[pos]

		// Multi-Index wie ein Zaehler hochzaehlen, letzte Dimension zuerst
		for d := len(size) - 1; d >= 0; d-- {
			index[d]++
			pos += stride[d]
			if index[d] < size[d] {
				break
			}
			pos -= index[d] * stride[d]
			index[d] = 0
		}
	}
	return out, nil
}

// contiguous berechnet Row-Major-Strides fuer eine Shape
func contiguous(size []int) []int {
	stride := make([]int, len(size))
	s := 1
	for i := len(size) - 1; i >= 0; i-- {
		stride[i] = s
		s *= size[i]
	}
	return stride
}
