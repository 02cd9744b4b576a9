// cmd_display.go - Display und Output-Funktionen
// Hauptfunktionen: showReport, humanNumber, formatShape, truncate
package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abdoudjigo/modelopt/optimize"
)

// showReport - Statistik pro Tensor nach einem Lauf
func showReport(r *optimize.Report, w io.Writer) {
	var rows [][]string
	for _, s := range r.Tensors {
		rmse := "-"
		if !math.IsNaN(s.RMSE) {
			rmse = strconv.FormatFloat(s.RMSE, 'g', 4, 64)
		}
		rows = append(rows, []string{
			"",
			s.Name,
			string(s.DType),
			formatShape(s.Shape),
			yesNo(s.Quantized),
			yesNo(s.Pruned),
			fmt.Sprintf("%.1f%%", 100*s.Sparsity),
			rmse,
		})
	}

	tableRender(w, "Run "+r.RunID.String(), []string{"", "NAME", "DTYPE", "SHAPE", "QUANTIZED", "PRUNED", "SPARSITY", "RMSE"}, rows)
	fmt.Fprintf(w, "  %s parameters, %.1f%% sparse, took %s\n", humanNumber(r.Parameters), 100*r.Sparsity, r.Duration.Round(time.Millisecond))
}

// humanNumber - Kurzform grosser Zahlen (z.B. 1.5M)
func humanNumber(n uint64) string {
	const (
		thousand = 1_000
		million  = 1_000_000
		billion  = 1_000_000_000
	)

	switch {
	case n >= billion:
		return strconv.FormatFloat(float64(n)/billion, 'f', 1, 64) + "B"
	case n >= million:
		return strconv.FormatFloat(float64(n)/million, 'f', 1, 64) + "M"
	case n >= thousand:
		return strconv.FormatFloat(float64(n)/thousand, 'f', 1, 64) + "K"
	default:
		return strconv.FormatUint(n, 10)
	}
}

// formatShape - Shape als "[2 3]"
func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// truncate - Kuerzt auf die Anzeigebreite, Zeilenumbrueche werden zu Leerzeichen
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "...")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
