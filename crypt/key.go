// Package crypt - Schluessel-Ableitung und Fernet-Verschluesselung
//
// Dieses Modul enthaelt die Schluessel-Seite:
// - Provider: Liefert den Fernet-Schluessel aus dem konfigurierten Geheimnis
// - DeriveKey: Padding/Encoding eines Geheimnisses auf 32 Byte
// - GenerateKey: Zufaelliger Schluessel fuer `modelopt keygen`
package crypt

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// KeySize ist die Laenge eines Fernet-Schluessels in Bytes
const KeySize = 32

// DefaultSecret ist der bekannte, unsichere Platzhalter.
// Wird nur mit Provider.AllowDefault verwendet.
const DefaultSecret = "default_model_key"

var (
	// ErrNoKey wird zurueckgegeben wenn kein Geheimnis konfiguriert ist
	ErrNoKey = errors.New("no model key configured (set MODEL_KEY)")

	// ErrInvalidKey wird zurueckgegeben wenn das Geheimnis keinen gueltigen Schluessel ergibt
	ErrInvalidKey = errors.New("invalid model key")
)

// encodedKeyLen ist die Laenge eines base64-kodierten Schluessels (44)
var encodedKeyLen = base64.URLEncoding.EncodedLen(KeySize)

// Provider liefert den symmetrischen Schluessel fuer einen Lauf
type Provider struct {
	// Secret ist das konfigurierte Geheimnis (MODEL_KEY)
	Secret string

	// AllowDefault erlaubt den Fallback auf DefaultSecret
	AllowDefault bool
}

// Key leitet den Fernet-Schluessel ab. Ohne Geheimnis und ohne
// AllowDefault schlaegt Key mit ErrNoKey fehl.
func (p Provider) Key() (*fernet.Key, error) {
	secret := p.Secret
	if secret == "" {
		if !p.AllowDefault {
			return nil, ErrNoKey
		}
		secret = DefaultSecret
	}

	encoded, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}

	k, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}

// DeriveKey gibt die URL-sichere base64-Kodierung des Schluessels zurueck.
// Ein Geheimnis mit bereits kodierter Laenge (44 Zeichen) wird unveraendert
// uebernommen, sonst wird es rechts mit '0' auf 32 Byte aufgefuellt.
func DeriveKey(secret string) (string, error) {
	if len(secret) == encodedKeyLen {
		return secret, nil
	}

	b := []byte(secret)
	if len(b) > KeySize {
		return "", fmt.Errorf("%w: secret is %d bytes, at most %d allowed", ErrInvalidKey, len(b), KeySize)
	}

	padded := make([]byte, KeySize)
	n := copy(padded, b)
	for i := n; i < KeySize; i++ {
		padded[i] = '0'
	}

	return base64.URLEncoding.EncodeToString(padded), nil
}

// GenerateKey erzeugt einen zufaelligen Schluessel und gibt ihn kodiert zurueck
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}
