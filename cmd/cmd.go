// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abdoudjigo/modelopt/envconfig"
)

// version wird beim Build per -ldflags gesetzt
var version = "0.0.0"

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands.
// Der Root Command selbst fuehrt die Optimierung aus.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "modelopt --input PATH --output PATH",
		Short:         "Quantize and prune model weights",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "modelopt version %s\n", version)
				return nil
			}
			return OptimizeHandler(cmd, args)
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	registerOptimizeFlags(rootCmd)

	encryptCmd := newEncryptCmd()
	keygenCmd := newKeygenCmd()
	showCmd := newShowCmd()

	// Environment-Dokumentation vor AddCommand, sonst erben die
	// Subcommands das Template des Root Commands
	envVars := envconfig.AsMap()
	appendEnvDocs(rootCmd, []envconfig.EnvVar{
		envVars["SHADOW_MODE"],
		envVars["MODEL_KEY"],
		envVars["MODELOPT_STATS"],
		envVars["MODELOPT_DEBUG"],
	})
	appendEnvDocs(encryptCmd, []envconfig.EnvVar{envVars["MODEL_KEY"]})
	appendEnvDocs(showCmd, []envconfig.EnvVar{envVars["MODEL_KEY"], envVars["MODELOPT_DEBUG"]})

	rootCmd.AddCommand(
		encryptCmd,
		keygenCmd,
		showCmd,
	)

	return rootCmd
}

// noArgs - Wie cobra.NoArgs, aber als Usage-Fehler
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unknown command or argument %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

// exactArgs - Wie cobra.ExactArgs, aber als Usage-Fehler
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
