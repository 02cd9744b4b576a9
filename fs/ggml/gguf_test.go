package ggml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abdoudjigo/modelopt/model"
)

func writeTemp(t *testing.T, m *model.Model) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "model.gguf")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := WriteModel(f, m); err != nil {
		t.Fatal(err)
	}
	return p
}

func readTemp(t *testing.T, p string) *model.Model {
	t.Helper()

	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	m, err := ReadModel(f)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestModelRoundTrip(t *testing.T) {
	m := model.New("safetensors")
	m.Metadata["general.name"] = "tiny"
	m.Metadata["format"] = "pt"
	m.Metadata[model.KindMetadataPrefix+"fc"] = "linear"

	add := func(tt *model.Tensor, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Add(tt); err != nil {
			t.Fatal(err)
		}
	}

	add(model.NewTensor("fc.weight", []int{2, 3}, model.DTypeF32, []float32{1, 2, 3, 4, 5, 6}))
	add(model.NewTensor("fc.bias", []int{2}, model.DTypeF16, []float32{0.5, -1.25}))
	add(model.NewTensor("conv.weight", []int{1, 1, 2, 2}, model.DTypeBF16, []float32{1, 2, 4, 8}))
	add(model.NewTensor64("scale", []int{2}, []float64{0.1, -1e-300}))
	add(model.NewRawTensor("bn.num_batches_tracked", []int{}, model.DTypeI64, []byte{7, 0, 0, 0, 0, 0, 0, 0}))

	got := readTemp(t, writeTemp(t, m))

	if got.Format != "gguf" {
		t.Errorf("Format = %q, erwartet gguf", got.Format)
	}
	if got.Len() != m.Len() {
		t.Fatalf("Len = %d, erwartet %d", got.Len(), m.Len())
	}

	for want := range m.Tensors() {
		tt, ok := got.Tensor(want.Name)
		if !ok {
			t.Errorf("Tensor %s fehlt", want.Name)
			continue
		}
		if diff := cmp.Diff(want, tt); diff != "" {
			t.Errorf("Tensor %s (-want +got):\n%s", want.Name, diff)
		}
	}

	if got.Metadata["general.name"] != "tiny" {
		t.Errorf("general.name = %q", got.Metadata["general.name"])
	}
	if got.Metadata[model.KindMetadataPrefix+"fc"] != "linear" {
		t.Error("modelopt.kind.* sollte ohne Architektur-Prefix erhalten bleiben")
	}
	if got.Metadata["general.format"] != "pt" {
		t.Errorf("general.format = %q, erwartet pt", got.Metadata["general.format"])
	}
	if _, ok := got.Metadata["unknown.format"]; ok {
		t.Error("freie Metadaten sollten nicht unter dem Architektur-Prefix landen")
	}
	if got.Metadata["general.architecture"] != "unknown" {
		t.Errorf("general.architecture = %q, erwartet unknown", got.Metadata["general.architecture"])
	}
}

func TestKVRoundTrip(t *testing.T) {
	m := model.New("gguf")
	m.KV = map[string]any{
		"general.architecture":      "llama",
		"general.alignment":         uint32(64),
		"llama.context_length":      uint32(2048),
		"llama.rope.freq_base":      float32(10000),
		"llama.use_parallel":        true,
		"tokenizer.ggml.tokens":     &array[string]{values: []string{"<s>", "</s>", "a"}},
		"tokenizer.ggml.scores":     &array[float32]{values: []float32{0, 0, -1}},
		"tokenizer.ggml.token_type": &array[int32]{values: []int32{3, 3, 1}},
		"llama.offset":              int64(-5),
	}
	tt, err := model.NewTensor("blk.0.attn_q.weight", []int{2, 2}, model.DTypeF32, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(tt); err != nil {
		t.Fatal(err)
	}

	got := readTemp(t, writeTemp(t, m))

	if diff := cmp.Diff(m.KV, got.KV, cmp.AllowUnexported(array[string]{}, array[float32]{}, array[int32]{})); diff != "" {
		t.Errorf("KV (-want +got):\n%s", diff)
	}
	if got.Metadata["general.architecture"] != "llama" {
		t.Errorf("Metadata sollte String-KVs enthalten, got %v", got.Metadata)
	}
}

func TestUnsupportedDType(t *testing.T) {
	m := model.New("safetensors")
	tt, err := model.NewRawTensor("mask", []int{2}, model.DTypeBool, []byte{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(tt); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "bad.gguf"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := WriteModel(f, m); err == nil {
		t.Error("erwartet Fehler fuer BOOL-Tensor")
	}
}

// ggufHeader baut eine minimale GGUF-v3-Datei mit einem F32-Tensor der
// Shape shape (innerste Dimension zuerst) und ohne Tensordaten
func ggufHeader(shape ...uint64) []byte {
	var b bytes.Buffer
	w := func(v any) { binary.Write(&b, binary.LittleEndian, v) } //nolint:errcheck

	w(uint32(FILE_MAGIC_GGUF_LE))
	w(uint32(3))
	w(uint64(1)) // Tensoren
	w(uint64(0)) // KV-Paare

	w(uint64(1))
	b.WriteString("w")
	w(uint32(len(shape)))
	for _, n := range shape {
		w(n)
	}
	w(uint32(TensorTypeF32))
	w(uint64(0))

	b.Write(make([]byte, ggufPadding(int64(b.Len()), 32)))
	return b.Bytes()
}

func TestReadModelRejectsInvalidShape(t *testing.T) {
	cases := map[string][]uint64{
		"too large": {1 << 63},
		"overflow":  {4, 1 << 62},
	}

	for name, shape := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadModel(bytes.NewReader(ggufHeader(shape...)))
			if !errors.Is(err, model.ErrShape) {
				t.Errorf("err = %v, erwartet ErrShape", err)
			}
		})
	}
}

func TestDecodeNotGGUF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "x")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteString("PK\x03\x04 not gguf"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadModel(f); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, erwartet ErrUnsupportedFormat", err)
	}
}

func TestDetectContentType(t *testing.T) {
	cases := map[string]string{
		"GGUF\x03\x00\x00\x00": "gguf",
		"FUGG":                 "gguf",
		"PK\x03\x04":           "",
		"GG":                   "",
	}
	for in, want := range cases {
		if got := DetectContentType([]byte(in)); got != want {
			t.Errorf("DetectContentType(%q) = %q, erwartet %q", in, got, want)
		}
	}
}
