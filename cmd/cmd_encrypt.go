// cmd_encrypt.go - Encrypt und Keygen Commands
// Hauptfunktionen: EncryptHandler, KeygenHandler, readSecret
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abdoudjigo/modelopt/crypt"
	"github.com/abdoudjigo/modelopt/envconfig"
	"github.com/abdoudjigo/modelopt/loader"
)

// newEncryptCmd - Erstellt den encrypt Command
func newEncryptCmd() *cobra.Command {
	encryptCmd := &cobra.Command{
		Use:   "encrypt --input PATH [--output PATH]",
		Short: "Encrypt a model file for use as an .enc input",
		Args:  noArgs,
		RunE:  EncryptHandler,
	}

	encryptCmd.Flags().StringP("input", "i", "", "Model file to encrypt")
	encryptCmd.Flags().StringP("output", "o", "", "Encrypted file (default: input + .enc)")
	encryptCmd.Flags().Bool("allow-default-key", false, "Fall back to the built-in insecure key when MODEL_KEY is unset")

	return encryptCmd
}

// newKeygenCmd - Erstellt den keygen Command
func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random key for MODEL_KEY",
		Args:  noArgs,
		RunE:  KeygenHandler,
	}
}

// EncryptHandler - Verschluesselt eine Modell-Datei mit Fernet
func EncryptHandler(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return usageError{errors.New("--input is required")}
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = input + loader.EncryptedSuffix
	}
	if !loader.IsEncrypted(output) {
		return usageError{fmt.Errorf("output %q must end in %s", output, loader.EncryptedSuffix)}
	}

	secret := envconfig.ModelKey()
	if secret == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		var err error
		if secret, err = readSecret(); err != nil {
			return err
		}
	}

	allowDefault, _ := cmd.Flags().GetBool("allow-default-key")
	k, err := crypt.Provider{Secret: secret, AllowDefault: allowDefault}.Key()
	if err != nil {
		return err
	}

	if err := crypt.EncryptFile(input, output, k); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "encrypted %s -> %s\n", input, output)
	return nil
}

// readSecret - Fragt das Geheimnis zweimal ohne Echo ab
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(os.Stderr, "Model key: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Repeat model key: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", usageError{errors.New("keys do not match")}
	}
	return string(first), nil
}

// KeygenHandler - Gibt einen zufaelligen, kodierten Schluessel aus
func KeygenHandler(cmd *cobra.Command, args []string) error {
	key, err := crypt.GenerateKey()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}
