// exit.go - Exit-Codes fuer Fehlerarten
// Hauptfunktionen: ExitCode
package cmd

import (
	"errors"
	"io/fs"

	"github.com/abdoudjigo/modelopt/crypt"
	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/optimize"
)

// Exit-Codes des Prozesses
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitIO        = 3
	ExitDecrypt   = 4
	ExitMalformed = 5
	ExitKey       = 6
)

// usageError markiert Fehler in der Kommandozeile
type usageError struct {
	error
}

func (e usageError) Unwrap() error {
	return e.error
}

// ExitCode bildet einen Fehler auf den Exit-Code ab. Die Reihenfolge
// zaehlt: ein beschaedigtes Modell kann zusaetzlich einen I/O-Fehler
// enthalten und gilt dann als beschaedigt.
func ExitCode(err error) int {
	var pathErr *fs.PathError
	var usage usageError

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage), errors.Is(err, optimize.ErrInvalidOptions):
		return ExitUsage
	case errors.Is(err, crypt.ErrNoKey), errors.Is(err, crypt.ErrInvalidKey):
		return ExitKey
	case errors.Is(err, crypt.ErrDecrypt):
		return ExitDecrypt
	case errors.Is(err, loader.ErrFormat):
		return ExitMalformed
	case errors.As(err, &pathErr):
		return ExitIO
	default:
		return ExitFailure
	}
}
