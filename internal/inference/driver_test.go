package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seqcraft/foldpipe/internal/features"
)

type fakeModel struct {
	name       string
	confidence float64
	pae        bool
}

func (m *fakeModel) Process(_ context.Context, bundle features.Bundle, seed int64) (features.Bundle, error) {
	if seed != 0 {
		return nil, errors.New("processing seed must be fixed at 0")
	}
	return bundle, nil
}

func (m *fakeModel) Predict(_ context.Context, _ features.Bundle, _ int64) (*Prediction, error) {
	p := &Prediction{
		ModelName:         m.name,
		PLDDT:             []float64{m.confidence},
		RankingConfidence: m.confidence,
		UnrelaxedPDB:      "MODEL " + m.name,
	}
	if m.pae {
		p.PAE = [][]float64{{0.5}}
		p.MaxPAE = 31.75
	}
	return p, nil
}

func paramsDir(t *testing.T, names []string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "params"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		path := filepath.Join(dir, "params", "params_"+name+".npz")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunMonomerExcludesPAEModelFromRanking(t *testing.T) {
	confidences := map[string]float64{
		"model_1":     60,
		"model_2":     80,
		"model_3":     70,
		"model_4":     80, // tie with model_2, first seen wins
		"model_5":     50,
		"model_2_ptm": 99, // highest, but PAE-only
	}
	factory := func(name string) (Model, error) {
		return &fakeModel{name: name, confidence: confidences[name], pae: name == "model_2_ptm"}, nil
	}
	d := NewDriver(paramsDir(t, Presets(false)), factory, WithSeedSource(func() int64 { return 7 }))

	result, err := d.Run(context.Background(), false, features.Bundle{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Best.ModelName != "model_2" {
		t.Fatalf("best = %s, want model_2 (tie goes to the earlier run)", result.Best.ModelName)
	}
	if result.PAE == nil || result.PAE.ModelName != "model_2_ptm" {
		t.Fatalf("PAE source = %v, want model_2_ptm", result.PAE)
	}
	if len(result.Runs) != 6 {
		t.Fatalf("completed %d runs, want 6", len(result.Runs))
	}
}

func TestRunMultimerBestCarriesPAE(t *testing.T) {
	confidences := map[string]float64{
		"model_1_multimer": 40,
		"model_2_multimer": 90,
		"model_3_multimer": 70,
		"model_4_multimer": 60,
		"model_5_multimer": 50,
	}
	factory := func(name string) (Model, error) {
		return &fakeModel{name: name, confidence: confidences[name], pae: true}, nil
	}
	d := NewDriver(paramsDir(t, Presets(true)), factory)

	result, err := d.Run(context.Background(), true, features.Bundle{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Best.ModelName != "model_2_multimer" {
		t.Fatalf("best = %s, want model_2_multimer", result.Best.ModelName)
	}
	if result.PAE == nil || result.PAE.ModelName != "model_2_multimer" {
		t.Fatalf("PAE source follows best for multimers, got %v", result.PAE)
	}
}

func TestRunMissingParamsAbortsBeforeAnyRun(t *testing.T) {
	runs := 0
	factory := func(name string) (Model, error) {
		runs++
		return &fakeModel{name: name, confidence: 50}, nil
	}
	dir := paramsDir(t, []string{"model_1"}) // the rest are missing
	d := NewDriver(dir, factory)

	_, err := d.Run(context.Background(), false, features.Bundle{})
	if !errors.Is(err, ErrMissingParams) {
		t.Fatalf("err = %v, want ErrMissingParams", err)
	}
	if runs != 0 {
		t.Fatalf("%d models were built before the parameter check failed", runs)
	}
}
