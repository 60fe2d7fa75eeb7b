// Package inference runs the feature bundle through each model preset and
// selects the most confident prediction.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/seqcraft/foldpipe/internal/features"
	"github.com/seqcraft/foldpipe/internal/logging"
	"github.com/seqcraft/foldpipe/internal/metrics"
)

// ErrMissingParams reports that a preset's parameter file is absent.
var ErrMissingParams = errors.New("model parameters not found")

// processSeed is the fixed seed for feature processing; only the predict
// step is randomized.
const processSeed = 0

var monomerPresets = []string{
	"model_1", "model_2", "model_3", "model_4", "model_5", "model_2_ptm",
}

var multimerPresets = []string{
	"model_1_multimer", "model_2_multimer", "model_3_multimer",
	"model_4_multimer", "model_5_multimer",
}

// Presets returns the model configurations to run, in order.
func Presets(multimer bool) []string {
	if multimer {
		return append([]string(nil), multimerPresets...)
	}
	return append([]string(nil), monomerPresets...)
}

// Result collects the outcome of a full inference sweep.
type Result struct {
	// Best is the highest-confidence prediction eligible for ranking.
	Best *Prediction
	// PAE is the prediction whose aligned-error matrix is reported; nil
	// when no run produced one.
	PAE *Prediction
	// Runs holds every completed prediction keyed by model name.
	Runs map[string]*Prediction
}

// Driver sequences model runs over one feature bundle.
type Driver struct {
	paramsDir string
	factory   Factory
	seed      func() int64
	log       *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithSeedSource overrides the predict-seed source.
func WithSeedSource(seed func() int64) Option {
	return func(d *Driver) { d.seed = seed }
}

// NewDriver creates a driver using the given model factory.
func NewDriver(paramsDir string, factory Factory, opts ...Option) *Driver {
	d := &Driver{
		paramsDir: paramsDir,
		factory:   factory,
		seed:      rand.Int63,
		log:       logging.Component("inference"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes every preset in order and selects the best prediction once
// all runs complete. Monomer runs carrying an aligned-error matrix feed the
// PAE result only and never compete for best; multimer runs feed both.
// Ties keep the earlier run.
func (d *Driver) Run(ctx context.Context, multimer bool, bundle features.Bundle) (*Result, error) {
	result := &Result{Runs: make(map[string]*Prediction)}

	presets := Presets(multimer)
	for _, name := range presets {
		if err := d.checkParams(name); err != nil {
			return nil, err
		}
	}

	for i, name := range presets {
		log := d.log.With("model", name, "run", fmt.Sprintf("%d/%d", i+1, len(presets)))
		log.Info("running model")
		start := time.Now()

		pred, err := d.runModel(ctx, name, bundle)
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.InferenceErrors.WithLabelValues(name).Inc()
			}
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		if m := metrics.Get(); m != nil {
			m.ModelRuns.WithLabelValues(name).Inc()
			m.ModelRunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			m.RankingConfidence.WithLabelValues(name).Set(pred.RankingConfidence)
		}
		log.Info("model complete",
			"ranking_confidence", pred.RankingConfidence,
			"mean_plddt", MeanPLDDT(pred.PLDDT),
			"duration", time.Since(start))

		result.Runs[name] = pred

		hasPAE := len(pred.PAE) > 0
		paeOnly := !multimer && hasPAE
		if paeOnly {
			result.PAE = pred
			continue
		}
		if result.Best == nil || pred.RankingConfidence > result.Best.RankingConfidence {
			result.Best = pred
			if multimer && hasPAE {
				result.PAE = pred
			}
		}
	}

	if result.Best == nil {
		return nil, errors.New("no ranked prediction produced")
	}
	d.log.Info("selected best model",
		"model", result.Best.ModelName,
		"ranking_confidence", result.Best.RankingConfidence)
	return result, nil
}

func (d *Driver) runModel(ctx context.Context, name string, bundle features.Bundle) (*Prediction, error) {
	model, err := d.factory(name)
	if err != nil {
		return nil, err
	}
	processed, err := model.Process(ctx, bundle, processSeed)
	if err != nil {
		return nil, fmt.Errorf("process features: %w", err)
	}
	pred, err := model.Predict(ctx, processed, d.seed())
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return pred, nil
}

func (d *Driver) checkParams(name string) error {
	path := filepath.Join(d.paramsDir, "params", "params_"+name+".npz")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingParams, path)
	}
	return nil
}
