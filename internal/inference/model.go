package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/seqcraft/foldpipe/internal/features"
)

// Prediction is the output of one model run.
type Prediction struct {
	ModelName         string      `json:"model_name"`
	PLDDT             []float64   `json:"plddt"`
	RankingConfidence float64     `json:"ranking_confidence"`
	PAE               [][]float64 `json:"predicted_aligned_error,omitempty"`
	MaxPAE            float64     `json:"max_predicted_aligned_error,omitempty"`
	UnrelaxedPDB      string      `json:"unrelaxed_pdb"`
}

// Model runs one network configuration. Process prepares the feature
// bundle with a deterministic seed; Predict runs inference with an
// independent seed.
type Model interface {
	Process(ctx context.Context, bundle features.Bundle, seed int64) (features.Bundle, error)
	Predict(ctx context.Context, processed features.Bundle, seed int64) (*Prediction, error)
}

// Factory builds a Model for a preset name. Injectable so the driver can
// be tested without the external predictor.
type Factory func(name string) (Model, error)

// ExecModel drives the external predictor process. Each call writes one
// JSON request to stdin and reads one JSON response from stdout; the
// process is spawned per call so a crashed run cannot poison the next.
type ExecModel struct {
	binary    string
	paramsDir string
	name      string
	multimer  bool
}

// NewExecFactory returns a Factory producing subprocess-backed models.
func NewExecFactory(binary, paramsDir string, multimer bool) Factory {
	return func(name string) (Model, error) {
		return &ExecModel{binary: binary, paramsDir: paramsDir, name: name, multimer: multimer}, nil
	}
}

type execRequest struct {
	Action      string          `json:"action"` // "process" | "predict"
	ModelName   string          `json:"model_name"`
	ParamsDir   string          `json:"params_dir"`
	Multimer    bool            `json:"multimer"`
	RandomSeed  int64           `json:"random_seed"`
	Features    features.Bundle `json:"features,omitempty"`
	RawFeatures json.RawMessage `json:"raw_features,omitempty"`
}

type execResponse struct {
	Features   json.RawMessage `json:"features,omitempty"`
	Prediction *Prediction     `json:"prediction,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Process runs the predictor's feature-processing step.
func (m *ExecModel) Process(ctx context.Context, bundle features.Bundle, seed int64) (features.Bundle, error) {
	resp, err := m.call(ctx, execRequest{
		Action:     "process",
		ModelName:  m.name,
		ParamsDir:  m.paramsDir,
		Multimer:   m.multimer,
		RandomSeed: seed,
		Features:   bundle,
	})
	if err != nil {
		return nil, err
	}
	// The processed bundle is opaque to the driver; it is carried as raw
	// JSON and handed back to the predict step unchanged.
	return features.Bundle{"processed": resp.Features}, nil
}

// Predict runs inference over a processed bundle.
func (m *ExecModel) Predict(ctx context.Context, processed features.Bundle, seed int64) (*Prediction, error) {
	raw, _ := processed["processed"].(json.RawMessage)
	resp, err := m.call(ctx, execRequest{
		Action:      "predict",
		ModelName:   m.name,
		ParamsDir:   m.paramsDir,
		Multimer:    m.multimer,
		RandomSeed:  seed,
		RawFeatures: raw,
	})
	if err != nil {
		return nil, err
	}
	if resp.Prediction == nil {
		return nil, fmt.Errorf("model %s: predictor returned no prediction", m.name)
	}
	resp.Prediction.ModelName = m.name
	return resp.Prediction, nil
}

func (m *ExecModel) call(ctx context.Context, req execRequest) (*execResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Action, err)
	}

	cmd := exec.CommandContext(ctx, m.binary)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s %s: %w: %s", m.binary, req.Action, err, strings.TrimSpace(stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Action, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model %s %s: %s", m.name, req.Action, resp.Error)
	}
	return &resp, nil
}
