// layer.go - Layer-Gruppierung und Layer-Arten
// Enthält: LayerKind, Layer, Model.Layers, InferKind
package model

import (
	"fmt"
	"strings"
)

// LayerKind ist die Art eines Layers
type LayerKind string

const (
	KindLinear    LayerKind = "linear"
	KindConv2d    LayerKind = "conv2d"
	KindEmbedding LayerKind = "embedding"
	KindNorm      LayerKind = "norm"
	KindOther     LayerKind = "other"
)

// KindMetadataPrefix ist der Metadaten-Prefix fuer explizite Layer-Arten,
// z.B. "modelopt.kind.encoder.fc1" = "linear"
const KindMetadataPrefix = "modelopt.kind."

// ParseLayerKind parst eine Layer-Art (case-insensitiv, PyTorch-Namen erlaubt)
func ParseLayerKind(s string) (LayerKind, error) {
	switch strings.ToLower(s) {
	case "linear":
		return KindLinear, nil
	case "conv2d":
		return KindConv2d, nil
	case "embedding":
		return KindEmbedding, nil
	case "norm", "layernorm", "rmsnorm", "batchnorm2d":
		return KindNorm, nil
	case "other":
		return KindOther, nil
	default:
		return "", fmt.Errorf("unknown layer kind %q", s)
	}
}

// Layer ist eine Gruppe von Tensoren mit gemeinsamem Namens-Prefix
type Layer struct {
	Name   string
	Kind   LayerKind
	Weight *Tensor
	Bias   *Tensor
}

// Prunable gibt zurueck, ob der Layer am Magnitude-Pruning teilnimmt
func (l Layer) Prunable() bool {
	return l.Weight != nil && (l.Kind == KindLinear || l.Kind == KindConv2d)
}

// Layers gruppiert die Tensoren nach Layer. Nur ".weight" und ".bias"
// werden zugeordnet; die Reihenfolge folgt dem ersten Auftreten.
func (m *Model) Layers() []Layer {
	var layers []Layer
	index := make(map[string]int)
	for t := range m.Tensors() {
		name, param, ok := splitName(t.Name)
		if !ok {
			continue
		}

		i, seen := index[name]
		if !seen {
			i = len(layers)
			index[name] = i
			layers = append(layers, Layer{Name: name})
		}

		switch param {
		case "weight":
			layers[i].Weight = t
		case "bias":
			layers[i].Bias = t
		}
	}

	for i := range layers {
		layers[i].Kind = m.kind(layers[i])
	}
	return layers
}

// SetKind legt die Layer-Art explizit in den Metadaten fest
func (m *Model) SetKind(layer string, kind LayerKind) {
	m.Metadata[KindMetadataPrefix+layer] = string(kind)
}

func (m *Model) kind(l Layer) LayerKind {
	if s, ok := m.Metadata[KindMetadataPrefix+l.Name]; ok {
		if kind, err := ParseLayerKind(s); err == nil {
			return kind
		}
	}
	return InferKind(l.Name, l.Weight)
}

// InferKind leitet die Layer-Art aus Name und Gewichts-Shape ab.
// 4D-Gewichte sind Conv2d; 2D-Gewichte sind Linear, ausser Embeddings und Norms.
func InferKind(name string, weight *Tensor) LayerKind {
	if weight == nil {
		return KindOther
	}

	lower := strings.ToLower(name)
	switch weight.Dims() {
	case 4:
		return KindConv2d
	case 2:
		switch {
		case strings.Contains(lower, "embed"), strings.Contains(lower, "embd"),
			strings.HasSuffix(lower, "wte"), strings.HasSuffix(lower, "wpe"):
			return KindEmbedding
		case strings.Contains(lower, "norm"), strings.Contains(lower, "ln_"):
			return KindNorm
		default:
			return KindLinear
		}
	case 1:
		if strings.Contains(lower, "norm") || strings.Contains(lower, "ln_") {
			return KindNorm
		}
	}
	return KindOther
}

// splitName trennt "encoder.fc1.weight" in ("encoder.fc1", "weight")
func splitName(s string) (layer, param string, ok bool) {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		layer, param = s[:i], s[i+1:]
	} else {
		param = s
	}
	return layer, param, param == "weight" || param == "bias"
}
