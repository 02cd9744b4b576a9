// Package ggml - GGUF Write Operations
//
// Dieses Modul enthaelt Funktionen zum Schreiben von GGUF-Dateien:
// - WriteGGUF: Schreibt komplettes GGUF-File mit KV und Tensors
// - writeGGUF: Generische Write-Funktion fuer Basistypen
// - writeGGUFString: String-Serialisierung
// - writeGGUFArray: Array-Serialisierung
// - ggufWriteKV: Key-Value Paar Serialisierung
// - ggufWriteTensorInfo: Tensor-Metadaten Serialisierung
package ggml

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// WriteGGUF schreibt ein GGUF-File mit KV-Paaren und Tensors (V3 Format).
// Jeder Tensor braucht einen WriterTo, der genau Size() Bytes schreibt.
func WriteGGUF(f *os.File, kv KV, ts []*Tensor) error {
	arch := kv.Architecture()

	// Magic: "GGUF"
	if err := binary.Write(f, binary.LittleEndian, []byte("GGUF")); err != nil {
		return err
	}

	// Version: 3
	if err := binary.Write(f, binary.LittleEndian, uint32(3)); err != nil {
		return err
	}

	if err := binary.Write(f, binary.LittleEndian, uint64(len(ts))); err != nil {
		return err
	}

	if err := binary.Write(f, binary.LittleEndian, uint64(kv.Len())); err != nil {
		return err
	}

	for _, key := range slices.Sorted(kv.Keys()) {
		if err := ggufWriteKV(f, arch, key, kv.Value(key)); err != nil {
			return err
		}
	}

	slices.SortStableFunc(ts, func(a, b *Tensor) int {
		return cmp.Or(cmp.Compare(a.block(), b.block()), cmp.Compare(a.Name, b.Name))
	})

	alignment := kv.Uint("general.alignment", 32)

	var s uint64
	for i := range ts {
		if ts[i].Size() == 0 && ts[i].Elements() > 0 {
			return fmt.Errorf("tensor %s: unsupported type %d", ts[i].Name, ts[i].Kind)
		}
		ts[i].Offset = s
		if err := ggufWriteTensorInfo(f, ts[i]); err != nil {
			return err
		}
		s += ts[i].Size()
		s += uint64(ggufPadding(int64(s), int64(alignment)))
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	offset += ggufPadding(offset, int64(alignment))

	// Tensor-Daten parallel an ihre Offsets schreiben
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range ts {
		w := io.NewOffsetWriter(f, offset+int64(t.Offset))
		g.Go(func() error {
			n, err := t.WriteTo(w)
			if err != nil {
				return err
			}
			if uint64(n) != t.Size() {
				return fmt.Errorf("tensor %s: wrote %d bytes, want %d", t.Name, n, t.Size())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Datei bis zum Ende des letzten Tensors verlaengern
	if len(ts) > 0 {
		last := ts[len(ts)-1]
		return f.Truncate(offset + int64(last.Offset+last.Size()))
	}
	return f.Truncate(offset)
}

// writeGGUF schreibt einen typisierten Wert mit Typ-Prefix
func writeGGUF[V any](w io.Writer, t uint32, v V) error {
	if err := binary.Write(w, binary.LittleEndian, t); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}

// writeGGUFString schreibt einen String mit Typ-Prefix und Laenge
func writeGGUFString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, ggufTypeString); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// writeGGUFArray schreibt ein Array mit Typ-Prefix
func writeGGUFArray[S ~[]E, E any](w io.Writer, t uint32, s S) error {
	if err := binary.Write(w, binary.LittleEndian, ggufTypeArray); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return err
	}

	// Strings muessen einzeln geschrieben werden
	if t == ggufTypeString {
		for _, e := range any(s).([]string) {
			if err := binary.Write(w, binary.LittleEndian, uint64(len(e))); err != nil {
				return err
			}
			if _, err := io.WriteString(w, e); err != nil {
				return err
			}
		}
		return nil
	}

	return binary.Write(w, binary.LittleEndian, s)
}

// ggufWriteKV schreibt ein Key-Value Paar
func ggufWriteKV(ws io.WriteSeeker, arch, k string, v any) error {
	// Architektur-Prefix hinzufuegen falls nicht vorhanden
	if !hasGlobalPrefix(k) && !isArchKey(k, arch) {
		k = arch + "." + k
	}

	slog.Debug(k, "type", fmt.Sprintf("%T", v))

	if err := binary.Write(ws, binary.LittleEndian, uint64(len(k))); err != nil {
		return err
	}
	if _, err := io.WriteString(ws, k); err != nil {
		return err
	}

	var err error
	switch v := v.(type) {
	case uint8:
		err = writeGGUF(ws, ggufTypeUint8, v)
	case int8:
		err = writeGGUF(ws, ggufTypeInt8, v)
	case uint16:
		err = writeGGUF(ws, ggufTypeUint16, v)
	case int16:
		err = writeGGUF(ws, ggufTypeInt16, v)
	case uint32:
		err = writeGGUF(ws, ggufTypeUint32, v)
	case int32:
		err = writeGGUF(ws, ggufTypeInt32, v)
	case uint64:
		err = writeGGUF(ws, ggufTypeUint64, v)
	case int64:
		err = writeGGUF(ws, ggufTypeInt64, v)
	case float32:
		err = writeGGUF(ws, ggufTypeFloat32, v)
	case float64:
		err = writeGGUF(ws, ggufTypeFloat64, v)
	case bool:
		err = writeGGUF(ws, ggufTypeBool, v)
	case string:
		err = writeGGUFString(ws, v)
	case *array[uint8]:
		err = writeGGUFArray(ws, ggufTypeUint8, v.values)
	case *array[int8]:
		err = writeGGUFArray(ws, ggufTypeInt8, v.values)
	case *array[uint16]:
		err = writeGGUFArray(ws, ggufTypeUint16, v.values)
	case *array[int16]:
		err = writeGGUFArray(ws, ggufTypeInt16, v.values)
	case []uint32:
		err = writeGGUFArray(ws, ggufTypeUint32, v)
	case *array[uint32]:
		err = writeGGUFArray(ws, ggufTypeUint32, v.values)
	case []int32:
		err = writeGGUFArray(ws, ggufTypeInt32, v)
	case *array[int32]:
		err = writeGGUFArray(ws, ggufTypeInt32, v.values)
	case *array[uint64]:
		err = writeGGUFArray(ws, ggufTypeUint64, v.values)
	case []int64:
		err = writeGGUFArray(ws, ggufTypeInt64, v)
	case *array[int64]:
		err = writeGGUFArray(ws, ggufTypeInt64, v.values)
	case []float32:
		err = writeGGUFArray(ws, ggufTypeFloat32, v)
	case *array[float32]:
		err = writeGGUFArray(ws, ggufTypeFloat32, v.values)
	case *array[float64]:
		err = writeGGUFArray(ws, ggufTypeFloat64, v.values)
	case []bool:
		err = writeGGUFArray(ws, ggufTypeBool, v)
	case *array[bool]:
		err = writeGGUFArray(ws, ggufTypeBool, v.values)
	case []string:
		err = writeGGUFArray(ws, ggufTypeString, v)
	case *array[string]:
		err = writeGGUFArray(ws, ggufTypeString, v.values)
	default:
		return fmt.Errorf("improper type for '%s'", k)
	}
	return err
}

// isArchKey prueft ob der Key schon den Architektur-Prefix traegt
func isArchKey(k, arch string) bool {
	return len(k) > len(arch) && k[:len(arch)] == arch && k[len(arch)] == '.'
}

// ggufWriteTensorInfo schreibt die Tensor-Metadaten
func ggufWriteTensorInfo(ws io.WriteSeeker, t *Tensor) error {
	slog.Debug(t.Name, "kind", t.Kind, "shape", t.Shape, "offset", t.Offset)

	if err := binary.Write(ws, binary.LittleEndian, uint64(len(t.Name))); err != nil {
		return err
	}
	if _, err := io.WriteString(ws, t.Name); err != nil {
		return err
	}

	if err := binary.Write(ws, binary.LittleEndian, uint32(len(t.Shape))); err != nil {
		return err
	}
	for _, n := range t.Shape {
		if err := binary.Write(ws, binary.LittleEndian, n); err != nil {
			return err
		}
	}

	// Kind + Offset
	if err := binary.Write(ws, binary.LittleEndian, t.Kind); err != nil {
		return err
	}
	return binary.Write(ws, binary.LittleEndian, t.Offset)
}

// ggufPadding berechnet das Padding fuer Alignment
func ggufPadding(offset, align int64) int64 {
	return (align - offset%align) % align
}
