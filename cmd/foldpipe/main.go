package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/logging"
	"github.com/seqcraft/foldpipe/internal/metrics"
	"github.com/seqcraft/foldpipe/internal/pipeline"
	"github.com/seqcraft/foldpipe/internal/seq"
)

// Version and GitSHA are set at build time via -ldflags.
var (
	Version = "dev"
	GitSHA  = "unknown"
)

func main() {
	var (
		sequenceFlag   = flag.String("sequence", "", "amino-acid sequence; repeat chains with a comma separator")
		fileFlag       = flag.String("file", "", "read sequences from a .txt or .fasta file instead of -sequence")
		outFlag        = flag.String("out", "", "artifact destination: directory, gs:// or s3:// address")
		relaxFlag      = flag.Bool("relax", false, "run the physics relaxation stage on the selected structure")
		plotFlag       = flag.Bool("plot", true, "write the confidence and aligned-error figure")
		sidechainsFlag = flag.Bool("show-sidechains", false, "include side chains when viewing the colored structure")
		configFlag     = flag.String("config", "", "path to a YAML configuration file")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *outFlag != "" {
		cfg.Output.Destination = *outFlag
	}
	cfg.Relax.Enabled = *relaxFlag
	cfg.Plot.Enabled = *plotFlag
	cfg.Plot.ShowSidechains = *sidechainsFlag

	logging.Setup(cfg.Logging)
	log := logging.Component("main")
	log.Info("foldpipe starting", "version", Version, "git_sha", GitSHA)

	metrics.Init("foldpipe")
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	inputs, err := resolveInputs(*sequenceFlag, *fileFlag)
	if err != nil {
		log.Error("invalid input", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Plot.ShowSidechains {
		log.Debug("side-chain rendering applies when the banded structure is opened in a molecular viewer")
	}

	p := pipeline.New(cfg)
	summary, err := p.Run(ctx, inputs)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown complete")
			return
		}
		log.Error("prediction failed", "error", err)
		os.Exit(1)
	}

	log.Info("prediction complete",
		"job_type", summary.Job.Type.String(),
		"chains", len(summary.Job.Sequences),
		"best_model", summary.BestModel,
		"mean_plddt", fmt.Sprintf("%.2f", summary.MeanPLDDT))
	for _, uri := range summary.ArtifactURIs {
		log.Info("artifact", "uri", uri)
	}
}

// resolveInputs turns the mutually exclusive input flags into raw sequence
// strings. Files are only read when -file is given, so a literal sequence
// containing a dot is never mistaken for a path.
func resolveInputs(sequence, file string) ([]string, error) {
	switch {
	case sequence != "" && file != "":
		return nil, errors.New("-sequence and -file are mutually exclusive")
	case file != "":
		return seq.ReadFile(file)
	case sequence != "":
		return strings.Split(sequence, ","), nil
	default:
		return nil, errors.New("one of -sequence or -file is required")
	}
}
