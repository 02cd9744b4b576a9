// pipeline.go - Optimierungs-Pipeline
// Enthaelt: Request, Run
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/abdoudjigo/modelopt/loader"
	"github.com/abdoudjigo/modelopt/logutil"
)

// Metadaten-Keys, die in die Ausgabe geschrieben werden
const (
	MetadataRunID      = "modelopt.run_id"
	MetadataQuantLevel = "modelopt.quant_level"
	MetadataRatio      = "modelopt.compression_ratio"
)

// Request beschreibt einen Lauf
type Request struct {
	Input  string
	Output string

	// Format ist das Ausgabe-Format, leer bedeutet Auswahl nach Endung
	Format loader.Format

	Options Options

	// Key wird nur fuer verschluesselte Eingaben aufgerufen
	Key loader.KeyFunc

	// Stats erfasst die Originalwerte fuer die RMSE im Report
	Stats bool
}

// Run laedt das Modell, schaltet in den Inferenz-Modus, quantisiert,
// prunt und speichert nur die Parameter. Zwischen den Schritten wird ctx
// geprueft; ein abgebrochener Lauf schreibt keine Ausgabe.
func Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	format := req.Format
	if format == "" {
		format = loader.FormatFromPath(req.Output)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	log := slog.With("run_id", id)
	log.Info("optimizing model", "input", req.Input, "output", req.Output, "format", format,
		"shadow", req.Options.ShadowMode, "quant_level", req.Options.QuantLevel, "ratio", req.Options.CompressionRatio)

	m, err := loader.Load(req.Input, req.Key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.Input, err)
	}
	m.Eval()
	log.Info("model loaded", "format", m.Format, "tensors", m.Len(), "parameters", m.Parameters())

	var originals map[string][]float64
	if req.Stats {
		originals = make(map[string][]float64)
		for t := range m.Tensors() {
			if t.IsFloat() {
				originals[t.Name] = t.Float64s()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := Quantize(m, req.Options.QuantLevel); err != nil {
		return nil, err
	}
	log.Debug("quantized", "level", req.Options.QuantLevel)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pruned := make(map[string]bool)
	for _, l := range m.Layers() {
		if l.Prunable() && l.Weight.IsFloat() {
			pruned[l.Weight.Name] = true
		}
		// Layer-Arten fuer spaetere Laeufe festhalten
		if l.Weight != nil {
			m.SetKind(l.Name, l.Kind)
		}
		logutil.Trace("layer", "name", l.Name, "kind", l.Kind)
	}

	if err := Prune(m, req.Options.CompressionRatio); err != nil {
		return nil, err
	}
	log.Debug("pruned", "ratio", req.Options.CompressionRatio, "layers", len(pruned))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Metadata[MetadataRunID] = id.String()
	m.Metadata[MetadataQuantLevel] = strconv.Itoa(req.Options.QuantLevel)
	m.Metadata[MetadataRatio] = strconv.FormatFloat(req.Options.CompressionRatio, 'g', -1, 64)

	if err := loader.Save(m, req.Output, format); err != nil {
		return nil, fmt.Errorf("save %s: %w", req.Output, err)
	}

	r := newReport(m, pruned, originals)
	r.RunID = id
	r.Input = req.Input
	r.Output = req.Output
	r.Format = format
	r.Options = req.Options
	r.Duration = time.Since(start)

	log.Info("model optimized", "output", req.Output, "quantized", r.Quantized, "pruned", r.Pruned,
		"sparsity", fmt.Sprintf("%.3f", r.Sparsity), "duration", r.Duration)
	return r, nil
}
