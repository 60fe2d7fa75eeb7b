// Package setup verifies external collaborators and bootstraps the model
// parameters before any pipeline work starts.
package setup

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/logging"
)

// ErrMissingTool reports an external binary that could not be resolved.
var ErrMissingTool = errors.New("required tool not found")

// ToolStatus is the availability result for one external binary.
type ToolStatus struct {
	Name      string
	Binary    string
	Path      string
	Available bool
}

// Availability collects the status of every external tool the pipeline
// shells out to.
type Availability struct {
	Jackhmmer ToolStatus
	Predictor ToolStatus
	Relaxer   ToolStatus
}

// Missing returns the names of unavailable tools.
func (a Availability) Missing() []string {
	var missing []string
	for _, s := range []ToolStatus{a.Jackhmmer, a.Predictor, a.Relaxer} {
		if !s.Available {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// CheckTools resolves each configured binary on PATH. The relaxer is only
// required when relaxation is enabled.
func CheckTools(cfg config.ToolsConfig, needRelaxer bool) (Availability, error) {
	log := logging.Component("setup")

	a := Availability{
		Jackhmmer: lookup("jackhmmer", cfg.JackhmmerBinary),
		Predictor: lookup("predictor", cfg.PredictorBinary),
		Relaxer:   lookup("relaxer", cfg.RelaxerBinary),
	}
	for _, s := range []ToolStatus{a.Jackhmmer, a.Predictor, a.Relaxer} {
		log.Debug("tool check", "tool", s.Name, "binary", s.Binary, "available", s.Available, "path", s.Path)
	}

	required := []ToolStatus{a.Jackhmmer, a.Predictor}
	if needRelaxer {
		required = append(required, a.Relaxer)
	}
	var missing []string
	for _, s := range required {
		if !s.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", s.Name, s.Binary))
		}
	}
	if len(missing) > 0 {
		return a, fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
	}
	return a, nil
}

func lookup(name, binary string) ToolStatus {
	s := ToolStatus{Name: name, Binary: binary}
	path, err := exec.LookPath(binary)
	if err != nil {
		return s
	}
	s.Path = path
	s.Available = true
	return s
}
