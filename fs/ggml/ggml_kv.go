// Package ggml - KV (Key-Value) Metadaten
//
// Dieses Modul enthaelt den KV-Typ und die generischen Getter:
// - KV: Map fuer GGUF Key-Value Metadaten
// - Architecture: general.architecture mit Default
// - String, Uint: typisierte Getter
// - Strings: String-Werte fuer model.Model.Metadata
package ggml

import (
	"iter"
	"log/slog"
	"maps"
	"strings"
)

// KV repraesentiert GGUF Key-Value Metadaten
type KV map[string]any

// Architecture gibt die Modell-Architektur zurueck
func (kv KV) Architecture() string {
	return kv.String("general.architecture", "unknown")
}

// String gibt einen String-Wert zurueck
func (kv KV) String(key string, defaultValue ...string) string {
	val, _ := keyValue(kv, key, append(defaultValue, "")...)
	return val
}

// Uint gibt einen uint32-Wert zurueck
func (kv KV) Uint(key string, defaultValue ...uint32) uint32 {
	val, _ := keyValue(kv, key, append(defaultValue, 0)...)
	return val
}

// Len gibt die Anzahl der KV-Paare zurueck
func (kv KV) Len() int {
	return len(kv)
}

// Keys gibt einen Iterator ueber alle Keys zurueck
func (kv KV) Keys() iter.Seq[string] {
	return maps.Keys(kv)
}

// Value gibt den Wert fuer einen Key zurueck
func (kv KV) Value(key string) any {
	return kv[key]
}

// Strings gibt alle skalaren String-Werte mit vollem Key zurueck
func (kv KV) Strings() map[string]string {
	out := make(map[string]string)
	for k, v := range kv {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

type valueTypes interface {
	uint8 | int8 | uint16 | int16 |
		uint32 | int32 | uint64 | int64 |
		string | float32 | float64 | bool
}

// hasGlobalPrefix prueft ob ein Key ohne Architektur-Prefix gespeichert wird
func hasGlobalPrefix(key string) bool {
	for _, p := range []string{"general.", "tokenizer.", "adapter.", "modelopt."} {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// keyValue ist eine generische Hilfsfunktion zum Lesen von KV-Werten
func keyValue[T valueTypes](kv KV, key string, defaultValue ...T) (T, bool) {
	if !hasGlobalPrefix(key) {
		key = kv.Architecture() + "." + key
	}

	if val, ok := kv[key].(T); ok {
		return val, true
	}

	slog.Debug("key with type not found", "key", key, "default", defaultValue[0])
	return defaultValue[0], false
}
