// Package loader - Laden und Speichern von Modell-Dateien
//
// Dieses Paket waehlt anhand der Magic-Bytes den passenden Codec und
// entschluesselt ".enc"-Artefakte transparent.
//
// Hauptfunktionen:
// - Load: Liest ein (evtl. verschluesseltes) Modell
// - Save: Schreibt die Parameter atomar (Temp-Datei + Rename)
// - DetectFormat: Format-Erkennung aus den ersten Bytes
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fernet/fernet-go"

	"github.com/abdoudjigo/modelopt/crypt"
	"github.com/abdoudjigo/modelopt/fs/ggml"
	"github.com/abdoudjigo/modelopt/fs/safetensors"
	"github.com/abdoudjigo/modelopt/fs/torch"
	"github.com/abdoudjigo/modelopt/model"
)

// EncryptedSuffix markiert verschluesselte Artefakte
const EncryptedSuffix = ".enc"

// tempSuffix ist die Endung der kurzlebigen Klartext-Datei
const tempSuffix = ".tmp"

// ErrFormat wird bei unbekannten oder beschaedigten Modell-Dateien zurueckgegeben
var ErrFormat = errors.New("malformed or unsupported model file")

// KeyFunc liefert den Schluessel; wird nur fuer verschluesselte Dateien aufgerufen
type KeyFunc func() (*fernet.Key, error)

// IsEncrypted prueft die Endung des Pfads
func IsEncrypted(path string) bool {
	return strings.HasSuffix(path, EncryptedSuffix)
}

// Load liest ein Modell. Klartext von ".enc"-Dateien bleibt fuer
// safetensors und GGUF im Speicher; Torch-Checkpoints brauchen einen Pfad
// und werden ueber eine 0600-Temp-Datei geladen, die auf jedem Weg
// geloescht wird.
func Load(path string, key KeyFunc) (*model.Model, error) {
	if !IsEncrypted(path) {
		return loadPlain(path)
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if key == nil {
		return nil, crypt.ErrNoKey
	}
	k, err := key()
	if err != nil {
		return nil, err
	}

	plaintext, err := crypt.Decrypt(ciphertext, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer clear(plaintext)

	format, err := DetectFormat(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("decrypted model", "path", path, "format", format, "size", len(plaintext))

	var m *model.Model
	switch format {
	case FormatTorch:
		err = withTempFile(path, plaintext, func(name string) error {
			m, err = torch.Load(name)
			return err
		})
	default:
		m, err = decode(bytes.NewReader(plaintext), format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	return m, nil
}

func loadPlain(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	format, err := DetectFormat(head[:n])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var m *model.Model
	if format == FormatTorch {
		m, err = torch.Load(path)
	} else {
		m, err = decode(f, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	return m, nil
}

func decode(rs io.ReadSeeker, format Format) (*model.Model, error) {
	switch format {
	case FormatSafetensors:
		return safetensors.Decode(rs)
	case FormatGGUF:
		return ggml.ReadModel(rs)
	default:
		return nil, fmt.Errorf("cannot decode %s from memory", format)
	}
}

// withTempFile schreibt plaintext in eine Geschwister-Datei
// "<name ohne .enc>.<zufall>.tmp" (0600), ruft fn damit auf und loescht
// sie danach in jedem Fall.
func withTempFile(path string, plaintext []byte, fn func(name string) error) error {
	base := strings.TrimSuffix(filepath.Base(path), EncryptedSuffix)
	f, err := os.CreateTemp(filepath.Dir(path), base+".*"+tempSuffix)
	if err != nil {
		return err
	}

	name := f.Name()
	defer func() {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove plaintext temp file", "path", name, "error", err)
		}
	}()

	_, err = f.Write(plaintext)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return fn(name)
}

// Save schreibt die Parameter des Modells nach path. Die Ausgabe
// entsteht in einer Temp-Datei im Zielverzeichnis und wird erst nach
// erfolgreichem Schreiben umbenannt.
func Save(m *model.Model, path string, format Format) (err error) {
	if format != FormatSafetensors && format != FormatGGUF {
		return fmt.Errorf("%w: cannot write %q", ErrFormat, format)
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.partial")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	switch format {
	case FormatSafetensors:
		err = safetensors.Encode(f, m)
	case FormatGGUF:
		err = ggml.WriteModel(f, m)
	}
	if err != nil {
		return err
	}

	if err := f.Chmod(0o644); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), path)
}
