// cmd_show.go - Show Command und Modell-Info Anzeige
// Hauptfunktionen: ShowHandler, showInfo
package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/model"
)

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show PATH",
		Short: "Show tensors, layers and metadata of a model file",
		Args:  exactArgs(1),
		RunE:  ShowHandler,
	}

	showCmd.Flags().BoolP("verbose", "v", false, "List every tensor")
	showCmd.Flags().Bool("allow-default-key", false, "Fall back to the built-in insecure key when MODEL_KEY is unset")

	return showCmd
}

// ShowHandler - Zeigt Informationen zu einer Modell-Datei an
func ShowHandler(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	m, err := loader.Load(args[0], keyFunc(cmd))
	if err != nil {
		return err
	}

	showInfo(m, verbose, cmd.OutOrStdout())
	return nil
}

// showInfo - Gibt Modell, Layer, Metadaten und optional Tensoren aus
func showInfo(m *model.Model, verbose bool, w io.Writer) {
	layers := m.Layers()

	tableRender(w, "Model", nil, [][]string{
		{"", "format", m.Format},
		{"", "tensors", strconv.Itoa(m.Len())},
		{"", "parameters", humanNumber(m.Parameters())},
		{"", "layers", strconv.Itoa(len(layers))},
	})

	if len(layers) > 0 {
		var rows [][]string
		for _, l := range layers {
			shape := "-"
			if l.Weight != nil {
				shape = formatShape(l.Weight.Shape)
			}
			rows = append(rows, []string{"", l.Name, string(l.Kind), shape, yesNo(l.Prunable())})
		}
		tableRender(w, "Layers", []string{"", "NAME", "KIND", "SHAPE", "PRUNED"}, rows)
	}

	if len(m.Metadata) > 0 {
		var rows [][]string
		for _, k := range slices.Sorted(maps.Keys(m.Metadata)) {
			rows = append(rows, []string{"", k, truncate(m.Metadata[k], 60)})
		}
		tableRender(w, "Metadata", nil, rows)
	}

	if verbose {
		var rows [][]string
		for t := range m.Tensors() {
			rows = append(rows, []string{"", t.Name, string(t.DType), formatShape(t.Shape), fmt.Sprintf("%.1f%%", 100*t.Sparsity())})
		}
		tableRender(w, "Tensors", []string{"", "NAME", "DTYPE", "SHAPE", "SPARSITY"}, rows)
	}
}

// tableRender - Rahmenlose Tabelle mit Ueberschrift
func tableRender(w io.Writer, title string, header []string, rows [][]string) {
	fmt.Fprintln(w, " ", title)

	table := tablewriter.NewWriter(w)
	if header != nil {
		table.SetHeader(header)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderLine(false)
		table.SetAutoFormatHeaders(false)
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintln(w)
}
