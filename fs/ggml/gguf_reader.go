// Package ggml - GGUF Reader Funktionen
//
// Dieses Modul enthaelt Low-Level Lese-Funktionen fuer GGUF:
// - readGGUF[T]: Generische Funktion zum Lesen typisierter Werte
// - readGGUFString: String-Deserialisierung (V2+)
// - readGGUFV1String: V1-kompatible String-Deserialisierung (null-terminiert)
package ggml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// maxStringLength begrenzt Strings in beschaedigten Dateien (1 GiB)
const maxStringLength = 1 << 30

// readGGUF liest einen typisierten Wert aus dem Reader
func readGGUF[T any](g *gguf, r io.Reader) (T, error) {
	var t T
	err := binary.Read(r, g.ByteOrder, &t)
	return t, err
}

// readGGUFLength liest eine Laengenangabe und prueft sie gegen maxStringLength
func readGGUFLength(g *gguf, r io.Reader) (int, error) {
	buf := g.scratch[:8]
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	length := g.ByteOrder.Uint64(buf)
	if length > maxStringLength {
		return 0, fmt.Errorf("string length %d exceeds limit", length)
	}
	return int(length), nil
}

// readGGUFV1String liest einen V1-String (null-terminiert)
func readGGUFV1String(g *gguf, r io.Reader) (string, error) {
	length, err := readGGUFLength(g, r)
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	if _, err := io.CopyN(&b, r, int64(length)); err != nil {
		return "", err
	}

	// V1 Strings sind null-terminiert
	if b.Len() > 0 {
		b.Truncate(b.Len() - 1)
	}

	return b.String(), nil
}

// readGGUFString liest einen String aus dem Reader
func readGGUFString(g *gguf, r io.Reader) (string, error) {
	if g.Version == 1 {
		return readGGUFV1String(g, r)
	}

	length, err := readGGUFLength(g, r)
	if err != nil {
		return "", err
	}

	var buf []byte
	if length > len(g.scratch) {
		buf = make([]byte, length)
	} else {
		buf = g.scratch[:length]
	}

	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
