// Package ggml - Core Types und Decode
//
// Dieses Modul definiert die Kernstrukturen:
// - GGML: Hauptcontainer fuer GGUF-Modelle
// - container: Interface fuer verschiedene GGML-Formate
// - ggufModel: Interface fuer Model-Daten (KV + Tensors)
// - Decode: Laedt die GGUF-Metadaten aus einem Reader
// - Magic Constants: File-Format Erkennung
package ggml

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/abdoudjigo/modelopt/fs/util/bufioutil"
)

// GGML repraesentiert ein geladenes GGUF-Modell (nur Metadaten)
type GGML struct {
	container
	ggufModel
	Length int64
}

// ggufModel definiert das Interface fuer GGML-Model-Daten
type ggufModel interface {
	KV() KV
	Tensors() Tensors
}

// container definiert das Interface fuer GGML-Container-Formate
type container interface {
	Name() string
	Decode(io.ReadSeeker) (ggufModel, error)
}

// Magic Constants fuer GGUF
const (
	// FILE_MAGIC_GGUF_LE fuer GGUF Little-Endian
	FILE_MAGIC_GGUF_LE = 0x46554747
	// FILE_MAGIC_GGUF_BE fuer GGUF Big-Endian
	FILE_MAGIC_GGUF_BE = 0x47475546
)

// ErrUnsupportedFormat wird zurueckgegeben wenn das Format nicht unterstuetzt wird
var ErrUnsupportedFormat = errors.New("unsupported model format")

// DetectContentType erkennt GGUF anhand der Magic-Bytes
func DetectContentType(b []byte) string {
	if len(b) < 4 {
		return ""
	}

	switch binary.LittleEndian.Uint32(b[:4]) {
	case FILE_MAGIC_GGUF_LE, FILE_MAGIC_GGUF_BE:
		return "gguf"
	default:
		return ""
	}
}

// Decode dekodiert die GGUF-Metadaten aus dem Reader. Arrays werden
// vollstaendig gelesen, damit sie beim Schreiben erhalten bleiben.
func Decode(rs io.ReadSeeker) (*GGML, error) {
	rs = bufioutil.NewBufferedSeeker(rs, 32<<10)

	var magic uint32
	if err := binary.Read(rs, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}

	var c container
	switch magic {
	case FILE_MAGIC_GGUF_LE:
		c = &containerGGUF{ByteOrder: binary.LittleEndian}
	case FILE_MAGIC_GGUF_BE:
		c = &containerGGUF{ByteOrder: binary.BigEndian}
	default:
		return nil, ErrUnsupportedFormat
	}

	gm, err := c.Decode(rs)
	if err != nil {
		return nil, err
	}

	offset, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	return &GGML{
		container: c,
		ggufModel: gm,
		Length:    offset,
	}, nil
}
