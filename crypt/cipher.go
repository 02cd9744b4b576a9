// cipher.go - Fernet-Verschluesselung ganzer Dateien
// Hauptfunktionen: Encrypt, Decrypt, EncryptFile
package crypt

import (
	"errors"
	"os"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt wird bei falschem Schluessel oder beschaedigtem Ciphertext zurueckgegeben
var ErrDecrypt = errors.New("decryption failed: wrong key or corrupted data")

// Encrypt verschluesselt und signiert plaintext als Fernet-Token
func Encrypt(plaintext []byte, k *fernet.Key) ([]byte, error) {
	return fernet.EncryptAndSign(plaintext, k)
}

// Decrypt prueft und entschluesselt ein Fernet-Token.
// Tokens laufen nicht ab.
func Decrypt(token []byte, k *fernet.Key) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{k})
	if msg == nil {
		return nil, ErrDecrypt
	}
	return msg, nil
}

// EncryptFile verschluesselt src nach dst (Modus 0600)
func EncryptFile(src, dst string, k *fernet.Key) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	defer clear(plaintext)

	token, err := Encrypt(plaintext, k)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, token, 0o600)
}
