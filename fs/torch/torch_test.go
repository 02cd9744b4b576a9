package torch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/abdoudjigo/modelopt/model"
)

func TestGatherContiguous(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}

	got, err := gather(data, 2, []int{2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 3, 4, 5, 6, 7}, got); diff != "" {
		t.Errorf("gather (-want +got):\n%s", diff)
	}
}

func TestGatherTransposed(t *testing.T) {
	// 2x3 Matrix, als 3x2 Transponierte gelesen
	data := []int{1, 2, 3, 4, 5, 6}

	got, err := gather(data, 0, []int{3, 2}, []int{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 4, 2, 5, 3, 6}, got); diff != "" {
		t.Errorf("gather (-want +got):\n%s", diff)
	}
}

func TestGatherScalarAndEmpty(t *testing.T) {
	got, err := gather([]int{9, 8}, 1, []int{}, []int{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{8}, got); diff != "" {
		t.Errorf("Skalar (-want +got):\n%s", diff)
	}

	got, err = gather([]int{}, 0, []int{0, 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("erwartet leeres Ergebnis, got %v", got)
	}
}

func TestGatherOutOfBounds(t *testing.T) {
	if _, err := gather([]int{1, 2, 3}, 1, []int{3}, nil); err == nil {
		t.Error("erwartet Fehler bei Zugriff ausserhalb des Storage")
	}
	if _, err := gather([]int{1, 2, 3}, 0, []int{3}, []int{1, 1}); err == nil {
		t.Error("erwartet Fehler bei falscher Stride-Laenge")
	}
}

func TestConvert(t *testing.T) {
	pt := &pytorch.Tensor{
		Source: &pytorch.FloatStorage{Data: []float32{1, 2, 3, 4}},
		Size:   []int{2, 2},
		Stride: []int{2, 1},
	}
	got, err := convert("fc.weight", pt)
	if err != nil {
		t.Fatal(err)
	}

	want, err := model.NewTensor("fc.weight", []int{2, 2}, model.DTypeF32, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("convert (-want +got):\n%s", diff)
	}

	long := &pytorch.Tensor{
		Source: &pytorch.LongStorage{Data: []int64{7}},
		Size:   []int{},
		Stride: []int{},
	}
	got, err = convert("bn.num_batches_tracked", long)
	if err != nil {
		t.Fatal(err)
	}
	if got.DType != model.DTypeI64 {
		t.Errorf("DType = %s, erwartet I64", got.DType)
	}
	if diff := cmp.Diff([]byte{7, 0, 0, 0, 0, 0, 0, 0}, got.Raw); diff != "" {
		t.Errorf("Raw (-want +got):\n%s", diff)
	}

	double := &pytorch.Tensor{
		Source: &pytorch.DoubleStorage{Data: []float64{0.1, 0.2}},
		Size:   []int{2},
		Stride: []int{1},
	}
	got, err = convert("head.scale", double)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0.1, 0.2}, got.Data64); diff != "" {
		t.Errorf("F64-Werte verkuerzt (-want +got):\n%s", diff)
	}
}

// testdata/state_dict.pt ist ein mit torch.save geschriebenes state_dict
// im ZIP-Format: fc.weight (F32), fc.bias (F16, Sicht ab Storage-Offset 1),
// bn.num_batches_tracked (I64-Skalar) und head.scale (F64).
func TestLoadStateDict(t *testing.T) {
	m, err := Load("testdata/state_dict.pt")
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for tt := range m.Tensors() {
		names = append(names, tt.Name)
	}
	if diff := cmp.Diff([]string{"fc.weight", "fc.bias", "bn.num_batches_tracked", "head.scale"}, names); diff != "" {
		t.Errorf("Reihenfolge (-want +got):\n%s", diff)
	}

	w, _ := m.Tensor("fc.weight")
	if w.DType != model.DTypeF32 || !cmp.Equal([]int{2, 2}, w.Shape) {
		t.Errorf("fc.weight: DType=%s Shape=%v", w.DType, w.Shape)
	}
	if diff := cmp.Diff([]float32{0.5, -1, 2, 0.25}, w.Data); diff != "" {
		t.Errorf("fc.weight (-want +got):\n%s", diff)
	}

	b, _ := m.Tensor("fc.bias")
	if b.DType != model.DTypeF16 {
		t.Errorf("fc.bias: DType=%s, erwartet F16", b.DType)
	}
	if diff := cmp.Diff([]float32{1.5, -0.5}, b.Data); diff != "" {
		t.Errorf("fc.bias (-want +got):\n%s", diff)
	}

	n, _ := m.Tensor("bn.num_batches_tracked")
	if n.DType != model.DTypeI64 || n.Dims() != 0 {
		t.Errorf("num_batches_tracked: DType=%s Shape=%v", n.DType, n.Shape)
	}
	if diff := cmp.Diff([]byte{7, 0, 0, 0, 0, 0, 0, 0}, n.Raw); diff != "" {
		t.Errorf("num_batches_tracked (-want +got):\n%s", diff)
	}

	s, _ := m.Tensor("head.scale")
	if diff := cmp.Diff([]float64{0.1, -0.2}, s.Data64); diff != "" {
		t.Errorf("head.scale (-want +got):\n%s", diff)
	}
}

func TestLoadNotACheckpoint(t *testing.T) {
	if _, err := Load("torch_test.go"); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, erwartet ErrInvalid", err)
	}
}

func TestFromObjectNested(t *testing.T) {
	sd := types.NewOrderedDict()
	sd.Set("b.weight", &pytorch.Tensor{
		Source: &pytorch.FloatStorage{Data: []float32{1, 2}},
		Size:   []int{2},
		Stride: []int{1},
	})
	sd.Set("a.weight", &pytorch.Tensor{
		Source: &pytorch.HalfStorage{Data: []float32{0.5, 1.5, 2.5, 3.5}},
		Size:   []int{2, 2},
		Stride: []int{2, 1},
	})

	ckpt := types.NewDict()
	ckpt.Set("epoch", 3)
	ckpt.Set("state_dict", sd)

	m, err := fromObject(ckpt)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for tt := range m.Tensors() {
		names = append(names, tt.Name)
	}
	if diff := cmp.Diff([]string{"b.weight", "a.weight"}, names); diff != "" {
		t.Errorf("Reihenfolge (-want +got):\n%s", diff)
	}

	a, _ := m.Tensor("a.weight")
	if a.DType != model.DTypeF16 {
		t.Errorf("DType = %s, erwartet F16", a.DType)
	}
}

func TestFromObjectInvalid(t *testing.T) {
	if _, err := fromObject("not a dict"); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, erwartet ErrInvalid", err)
	}

	empty := types.NewOrderedDict()
	empty.Set("epoch", 1)
	if _, err := fromObject(empty); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, erwartet ErrInvalid fuer Dict ohne Tensoren", err)
	}
}
