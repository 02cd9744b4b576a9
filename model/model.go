// Package model - In-Memory Modell aus benannten Parameter-Tensoren
//
// Dieses Paket stellt das Modell bereit, das von den Container-Codecs
// erzeugt und vom Optimierer veraendert wird.
//
// Hauptkomponenten:
// - Model: Geordnete Tensor-Tabelle plus Metadaten
// - Tensor: Einzelner Parameter (tensor.go)
// - Layer: Gruppierung nach Namens-Prefix und Layer-Art (layer.go)
package model

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Model ist ein deserialisiertes Modell. Die Reihenfolge der Tensoren
// entspricht der Reihenfolge in der Quelldatei.
type Model struct {
	// Format ist der Container, aus dem das Modell geladen wurde
	Format string

	// Metadata sind String-Metadaten (safetensors __metadata__)
	Metadata map[string]string

	// KV sind GGUF Key-Value Metadaten, nur bei GGUF-Quellen gesetzt
	KV map[string]any

	tensors  *orderedmap.OrderedMap[string, *Tensor]
	training bool
}

// New erstellt ein leeres Modell im Trainings-Modus
func New(format string) *Model {
	return &Model{
		Format:   format,
		Metadata: make(map[string]string),
		tensors:  orderedmap.New[string, *Tensor](),
		training: true,
	}
}

// Add fuegt einen Tensor hinzu. Doppelte Namen sind ein Fehler.
func (m *Model) Add(t *Tensor) error {
	if _, ok := m.tensors.Get(t.Name); ok {
		return fmt.Errorf("duplicate tensor %q", t.Name)
	}
	m.tensors.Set(t.Name, t)
	return nil
}

// Tensor gibt den Tensor mit dem Namen zurueck
func (m *Model) Tensor(name string) (*Tensor, bool) {
	return m.tensors.Get(name)
}

// Tensors iteriert in Einfuege-Reihenfolge ueber alle Tensoren
func (m *Model) Tensors() iter.Seq[*Tensor] {
	return func(yield func(*Tensor) bool) {
		for pair := m.tensors.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Value) {
				return
			}
		}
	}
}

// Len gibt die Anzahl der Tensoren zurueck
func (m *Model) Len() int {
	return m.tensors.Len()
}

// Parameters gibt die Gesamtanzahl aller Elemente zurueck
func (m *Model) Parameters() (n uint64) {
	for t := range m.Tensors() {
		n += uint64(t.Elements())
	}
	return n
}

// Eval schaltet das Modell in den Inferenz-Modus
func (m *Model) Eval() {
	m.training = false
}

// Training gibt zurueck, ob das Modell im Trainings-Modus ist
func (m *Model) Training() bool {
	return m.training
}
