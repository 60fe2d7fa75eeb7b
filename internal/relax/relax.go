// Package relax wraps the external physics relaxer that removes steric
// clashes from a predicted structure.
package relax

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/logging"
)

// Relaxer refines an unrelaxed structure. Implementations take and return
// complete PDB text.
type Relaxer interface {
	Relax(ctx context.Context, unrelaxedPDB string) (string, error)
}

// Amber runs the external relaxer binary. Relaxation parameters come from
// the relax config section; zero max iterations means run to convergence.
type Amber struct {
	binary string
	cfg    config.RelaxConfig
	log    *slog.Logger
}

// NewAmber creates a relaxer around the given binary path.
func NewAmber(binary string, cfg config.RelaxConfig) *Amber {
	return &Amber{binary: binary, cfg: cfg, log: logging.Component("relax")}
}

// Relax pipes the structure through the relaxer and returns the refined
// PDB text.
func (a *Amber) Relax(ctx context.Context, unrelaxedPDB string) (string, error) {
	args := []string{
		"--max-iterations", strconv.Itoa(a.cfg.MaxIterations),
		"--tolerance", strconv.FormatFloat(a.cfg.Tolerance, 'g', -1, 64),
		"--stiffness", strconv.FormatFloat(a.cfg.Stiffness, 'g', -1, 64),
		"--max-outer-iterations", strconv.Itoa(a.cfg.MaxOuterIterations),
		"--use-gpu=true",
	}

	a.log.Info("relaxing structure", "residue_lines", strings.Count(unrelaxedPDB, "\nATOM"))

	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Stdin = strings.NewReader(unrelaxedPDB)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", a.binary, err, strings.TrimSpace(stderr.String()))
	}
	relaxed := stdout.String()
	if !strings.Contains(relaxed, "ATOM") {
		return "", fmt.Errorf("%s produced no structure output", a.binary)
	}
	return relaxed, nil
}
