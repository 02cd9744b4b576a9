// cmd_optimize.go - Optimierung ueber den Root Command
// Hauptfunktionen: OptimizeHandler, registerOptimizeFlags
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernet/fernet-go"
	"github.com/spf13/cobra"

	"github.com/abdoudjigo/modelopt/crypt"
	"github.com/abdoudjigo/modelopt/envconfig"
	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/optimize"
)

// registerOptimizeFlags - Flags der Optimierung
func registerOptimizeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Model to optimize (.safetensors, .gguf, .pt/.bin, or any of these with .enc)")
	cmd.Flags().StringP("output", "o", "", "Where to write the optimized parameters")
	cmd.Flags().Bool("shadow", false, "Use aggressive compression (4-bit grid, keep 70%)")
	cmd.Flags().String("format", "", "Output format: safetensors or gguf (default: by output extension)")
	cmd.Flags().Int("quant-level", 0, "Override the quantization level in bits (1-16)")
	cmd.Flags().Float64("ratio", 0, "Override the fraction of weights kept by pruning (0-1]")
	cmd.Flags().Bool("allow-default-key", false, "Fall back to the built-in insecure key when MODEL_KEY is unset")
	cmd.Flags().Bool("stats", false, "Print per-tensor statistics")
}

// optionsFromFlags - Baut den Options-Snapshot. --shadow hat Vorrang vor SHADOW_MODE.
func optionsFromFlags(cmd *cobra.Command) (optimize.Options, error) {
	shadow := envconfig.ShadowMode()
	if cmd.Flags().Changed("shadow") {
		shadow, _ = cmd.Flags().GetBool("shadow")
	}

	opts := optimize.OptionsFor(shadow)
	if cmd.Flags().Changed("quant-level") {
		opts.QuantLevel, _ = cmd.Flags().GetInt("quant-level")
	}
	if cmd.Flags().Changed("ratio") {
		opts.CompressionRatio, _ = cmd.Flags().GetFloat64("ratio")
	}

	return opts, opts.Validate()
}

// keyFunc - Liefert den Schluessel erst bei Bedarf
func keyFunc(cmd *cobra.Command) loader.KeyFunc {
	allowDefault, _ := cmd.Flags().GetBool("allow-default-key")
	provider := crypt.Provider{Secret: envconfig.ModelKey(), AllowDefault: allowDefault}

	return func() (*fernet.Key, error) {
		if provider.Secret == "" && provider.AllowDefault {
			slog.Warn("MODEL_KEY not set, using the insecure default key")
		}
		return provider.Key()
	}
}

// OptimizeHandler - Laedt, quantisiert, prunt und speichert ein Modell
func OptimizeHandler(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	if input == "" || output == "" {
		return usageError{errors.New("both --input and --output are required")}
	}

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	var format loader.Format
	if s, _ := cmd.Flags().GetString("format"); s != "" {
		if format, err = loader.ParseFormat(s); err != nil {
			return usageError{err}
		}
	}

	stats, _ := cmd.Flags().GetBool("stats")
	stats = stats || envconfig.Stats()

	r, err := optimize.Run(cmd.Context(), optimize.Request{
		Input:   input,
		Output:  output,
		Format:  format,
		Options: opts,
		Key:     keyFunc(cmd),
		Stats:   stats,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "wrote %s (%s, %d quantized, %d pruned, %.1f%% sparse)\n",
		r.Output, r.Format, r.Quantized, r.Pruned, 100*r.Sparsity)

	if stats {
		showReport(r, w)
	}
	return nil
}
