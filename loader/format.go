// format.go - Container-Formate und Erkennung
// Enthaelt: Format, ParseFormat, FormatFromPath, DetectFormat
package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abdoudjigo/modelopt/fs/ggml"
	"github.com/abdoudjigo/modelopt/fs/safetensors"
)

// Format ist ein Container-Format
type Format string

const (
	FormatSafetensors Format = "safetensors"
	FormatGGUF        Format = "gguf"
	FormatTorch       Format = "torch"
)

// ParseFormat parst ein Ausgabe-Format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSafetensors, FormatGGUF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use safetensors or gguf)", s)
	}
}

// FormatFromPath waehlt das Ausgabe-Format anhand der Endung
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".gguf") {
		return FormatGGUF
	}
	return FormatSafetensors
}

// DetectFormat erkennt das Format aus den ersten Bytes. safetensors wird
// vor dem Pickle-Protokoll-Byte geprueft, da eine Header-Groesse mit
// niederwertigem Byte 0x80 sonst als Pickle gelten wuerde.
func DetectFormat(b []byte) (Format, error) {
	switch {
	case ggml.DetectContentType(b) == "gguf":
		return FormatGGUF, nil
	case safetensors.IsSafetensors(b):
		return FormatSafetensors, nil
	case bytes.HasPrefix(b, []byte("PK\x03\x04")):
		return FormatTorch, nil
	case len(b) > 0 && b[0] == 0x80:
		return FormatTorch, nil
	default:
		return "", ErrFormat
	}
}
