// Package report serializes the selected prediction and its confidence
// artifacts through the artifact store.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/seqcraft/foldpipe/internal/artifacts"
	"github.com/seqcraft/foldpipe/internal/logging"
)

// Artifact file names, fixed for downstream consumers.
const (
	StructureName = "selected_prediction.pdb"
	PAEName       = "predicted_aligned_error.json"
	PlotName      = "gget_alphafold_results.png"
)

// Reporter writes the pipeline outputs.
type Reporter struct {
	store artifacts.Store
	log   *slog.Logger
}

// New creates a reporter over the given store.
func New(store artifacts.Store) *Reporter {
	return &Reporter{store: store, log: logging.Component("report")}
}

// WriteStructure persists the selected structure.
func (r *Reporter) WriteStructure(ctx context.Context, pdb string) error {
	if err := r.store.Write(ctx, StructureName, []byte(pdb)); err != nil {
		return fmt.Errorf("write structure: %w", err)
	}
	r.log.Info("wrote structure", "uri", r.store.URI(StructureName))
	return nil
}

// paeEntry matches the AlphaFold-DB aligned-error JSON layout: a
// single-element list holding the rounded matrix and its maximum.
type paeEntry struct {
	PredictedAlignedError    [][]float64 `json:"predicted_aligned_error"`
	MaxPredictedAlignedError float64     `json:"max_predicted_aligned_error"`
}

// WritePAE persists the aligned-error matrix, rounded to one decimal.
func (r *Reporter) WritePAE(ctx context.Context, pae [][]float64, maxPAE float64) error {
	rounded := make([][]float64, len(pae))
	for i, row := range pae {
		rounded[i] = make([]float64, len(row))
		for j, v := range row {
			rounded[i][j] = math.Round(v*10) / 10
		}
	}

	data, err := json.Marshal([]paeEntry{{
		PredictedAlignedError:    rounded,
		MaxPredictedAlignedError: maxPAE,
	}})
	if err != nil {
		return fmt.Errorf("marshal aligned error: %w", err)
	}
	if err := r.store.Write(ctx, PAEName, data); err != nil {
		return fmt.Errorf("write aligned error: %w", err)
	}
	r.log.Info("wrote aligned error", "uri", r.store.URI(PAEName))
	return nil
}
