// Package pipeline sequences a full prediction job: capability checks,
// parameter bootstrap, sequence validation, mirror selection, chunked MSA
// retrieval, feature assembly, inference, optional relaxation and artifact
// reporting.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/schollz/progressbar/v2"

	"github.com/seqcraft/foldpipe/internal/artifacts"
	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/features"
	"github.com/seqcraft/foldpipe/internal/inference"
	"github.com/seqcraft/foldpipe/internal/logging"
	"github.com/seqcraft/foldpipe/internal/metrics"
	"github.com/seqcraft/foldpipe/internal/mirror"
	"github.com/seqcraft/foldpipe/internal/msa"
	"github.com/seqcraft/foldpipe/internal/relax"
	"github.com/seqcraft/foldpipe/internal/report"
	"github.com/seqcraft/foldpipe/internal/seq"
	"github.com/seqcraft/foldpipe/internal/setup"
)

// Summary is the outcome of one completed job.
type Summary struct {
	Job          seq.Job
	BestModel    string
	MeanPLDDT    float64
	ArtifactURIs []string
}

// Pipeline runs prediction jobs. External collaborators are injectable so
// the sequencing logic is testable without binaries or network access.
type Pipeline struct {
	cfg config.Config
	log *slog.Logger

	checkTools   func(config.ToolsConfig, bool) (setup.Availability, error)
	ensureParams func(context.Context, config.ParamsConfig) error
	selector     *mirror.Selector
	searcher     msa.Searcher
	factory      inference.Factory
	relaxer      relax.Relaxer
	newStore     func(context.Context, string) (artifacts.Store, error)
	progress     bool
}

// Option overrides a pipeline collaborator.
type Option func(*Pipeline)

// WithToolCheck replaces the external-binary availability check.
func WithToolCheck(f func(config.ToolsConfig, bool) (setup.Availability, error)) Option {
	return func(p *Pipeline) { p.checkTools = f }
}

// WithParamsBootstrap replaces the parameter download step.
func WithParamsBootstrap(f func(context.Context, config.ParamsConfig) error) Option {
	return func(p *Pipeline) { p.ensureParams = f }
}

// WithSelector replaces the mirror selector.
func WithSelector(s *mirror.Selector) Option {
	return func(p *Pipeline) { p.selector = s }
}

// WithSearcher replaces the chunked database searcher.
func WithSearcher(s msa.Searcher) Option {
	return func(p *Pipeline) { p.searcher = s }
}

// WithModelFactory replaces the inference model factory.
func WithModelFactory(f inference.Factory) Option {
	return func(p *Pipeline) { p.factory = f }
}

// WithRelaxer replaces the structure relaxer.
func WithRelaxer(r relax.Relaxer) Option {
	return func(p *Pipeline) { p.relaxer = r }
}

// WithStoreFactory replaces artifact store construction.
func WithStoreFactory(f func(context.Context, string) (artifacts.Store, error)) Option {
	return func(p *Pipeline) { p.newStore = f }
}

// WithoutProgress disables the terminal progress bar.
func WithoutProgress() Option {
	return func(p *Pipeline) { p.progress = false }
}

// New creates a pipeline with production collaborators, then applies
// overrides.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:          cfg,
		log:          logging.Component("pipeline"),
		checkTools:   setup.CheckTools,
		ensureParams: setup.EnsureParams,
		selector:     mirror.New(cfg.Mirror.Suffixes, cfg.Mirror.RootPattern, cfg.Mirror.TestObject),
		newStore:     artifacts.NewStore,
		progress:     true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.searcher == nil {
		fetcher := msa.NewChunkFetcher(http.DefaultClient, cfg.Search.TempDir)
		p.searcher = msa.NewJackhmmer(cfg.Tools.JackhmmerBinary, fetcher, cfg.Search.TempDir)
	}
	return p
}

// Run executes the whole job for the given raw sequence inputs and returns
// a summary of the selected prediction.
func (p *Pipeline) Run(ctx context.Context, inputs []string) (*Summary, error) {
	if _, err := p.checkTools(p.cfg.Tools, p.cfg.Relax.Enabled); err != nil {
		return nil, err
	}

	// Validate everything before touching the network.
	job, err := seq.Validate(inputs)
	if err != nil {
		return nil, err
	}
	p.log.Info("job validated", "type", job.Type.String(), "chains", len(job.Sequences))

	if err := p.ensureParams(ctx, p.cfg.Params); err != nil {
		return nil, err
	}

	suffix, err := p.selector.Select(ctx)
	if err != nil {
		return nil, err
	}
	root := p.selector.Root(suffix)
	p.log.Info("selected mirror", "suffix", suffix, "root", root)

	dbs := p.databases(root, job)
	heteromerDBs := make(map[string]bool)
	for _, d := range p.cfg.Databases {
		if d.HeteromerOnly {
			heteromerDBs[d.Name] = true
		}
	}

	chains, err := p.retrieveChains(ctx, job, dbs, heteromerDBs)
	if err != nil {
		return nil, err
	}

	bundle, err := features.Assemble(job, chains)
	if err != nil {
		return nil, fmt.Errorf("assemble features: %w", err)
	}

	factory := p.factory
	if factory == nil {
		factory = inference.NewExecFactory(p.cfg.Tools.PredictorBinary, p.cfg.Params.Dir, job.Type.Multimer())
	}
	driver := inference.NewDriver(p.cfg.Params.Dir, factory)
	result, err := driver.Run(ctx, job.Type.Multimer(), bundle)
	if err != nil {
		return nil, err
	}

	structure, err := p.finalizeStructure(ctx, result.Best)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Job:       job,
		BestModel: result.Best.ModelName,
		MeanPLDDT: inference.MeanPLDDT(result.Best.PLDDT),
	}
	if err := p.report(ctx, structure, result, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// databases resolves configured databases against the mirror root,
// dropping heteromer-only ones for other job types.
func (p *Pipeline) databases(root string, job seq.Job) []msa.Database {
	var dbs []msa.Database
	for _, d := range p.cfg.Databases {
		if d.HeteromerOnly && job.Type != seq.Heteromer {
			continue
		}
		dbs = append(dbs, msa.Database{
			Name:              d.Name,
			Root:              root,
			Path:              d.Path,
			NumStreamedChunks: d.NumStreamedChunks,
			ZValue:            d.ZValue,
			MaxHits:           d.MaxHits,
		})
	}
	return dbs
}

// retrieveChains runs the chunked searches for every chain and builds the
// per-chain feature bundles. Identical chains share one search through the
// retriever cache.
func (p *Pipeline) retrieveChains(ctx context.Context, job seq.Job, dbs []msa.Database, heteromerDBs map[string]bool) ([]features.Bundle, error) {
	retriever := msa.NewRetriever(p.searcher, p.cfg.Search.TempDir)
	defer retriever.CleanUp()

	totalChunks := 0
	for _, db := range dbs {
		totalChunks += db.NumStreamedChunks
	}
	totalChunks *= len(job.Unique())

	var bar *progressbar.ProgressBar
	if p.progress {
		bar = progressbar.NewOptions(totalChunks,
			progressbar.OptionSetDescription("searching genetic databases"),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}
	chunkDone := func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	maxHits := make(map[string]int, len(dbs))
	for _, db := range dbs {
		maxHits[db.Name] = db.MaxHits
	}

	chains := make([]features.Bundle, len(job.Sequences))
	for i, sequence := range job.Sequences {
		log := logging.ChainLogger("pipeline", i)
		raw, err := retriever.Retrieve(ctx, sequence, i, dbs, chunkDone)
		if err != nil {
			return nil, err
		}

		in := features.ChainInput{Sequence: sequence}
		for name, results := range raw {
			merged := msa.MergeChunked(results, maxHits[name])
			if m := metrics.Get(); m != nil {
				m.MergedHits.WithLabelValues(name).Observe(float64(len(merged.Sequences)))
			}
			if heteromerDBs[name] {
				if !merged.Empty() {
					allSeq := merged
					in.AllSeq = &allSeq
				}
				continue
			}
			if merged.Empty() {
				log.Warn("no hits found", "database", name)
				continue
			}
			log.Info("merged alignment", "database", name, "rows", len(merged.Sequences))
			in.SingleChain = append(in.SingleChain, merged)
		}
		chains[i] = features.BuildChain(in)
	}
	return chains, nil
}

// finalizeStructure relaxes the selected prediction when enabled,
// otherwise passes the unrelaxed structure through with a warning.
func (p *Pipeline) finalizeStructure(ctx context.Context, best *inference.Prediction) (string, error) {
	if !p.cfg.Relax.Enabled {
		p.log.Warn("running without relaxation stage, structure may contain steric clashes")
		return best.UnrelaxedPDB, nil
	}
	relaxer := p.relaxer
	if relaxer == nil {
		relaxer = relax.NewAmber(p.cfg.Tools.RelaxerBinary, p.cfg.Relax)
	}
	relaxed, err := relaxer.Relax(ctx, best.UnrelaxedPDB)
	if err != nil {
		return "", fmt.Errorf("relax structure: %w", err)
	}
	return relaxed, nil
}

// report persists the artifacts when an output destination is configured.
func (p *Pipeline) report(ctx context.Context, structure string, result *inference.Result, summary *Summary) error {
	if p.cfg.Output.Destination == "" {
		p.log.Info("no output destination configured, discarding artifacts")
		return nil
	}

	store, err := p.newStore(ctx, p.cfg.Output.Destination)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer store.Close()
	reporter := report.New(store)

	if err := reporter.WriteStructure(ctx, structure); err != nil {
		return err
	}
	summary.ArtifactURIs = append(summary.ArtifactURIs, store.URI(report.StructureName))

	if result.PAE != nil {
		if err := reporter.WritePAE(ctx, result.PAE.PAE, result.PAE.MaxPAE); err != nil {
			return err
		}
		summary.ArtifactURIs = append(summary.ArtifactURIs, store.URI(report.PAEName))
	}

	// The results plot pairs the confidence panel with the pairwise error
	// heat map, so it is only persisted when a run produced the matrix.
	if p.cfg.Plot.Enabled {
		if result.PAE == nil {
			p.log.Warn("no model produced a pairwise error matrix, skipping results plot")
			return nil
		}
		// Color the structure by confidence band before reading chain
		// breaks, the same structure an interactive viewer would show.
		banded, err := inference.OverwriteBFactors(structure, inference.BandedBFactors(result.Best.PLDDT))
		if err != nil {
			return fmt.Errorf("band structure confidence: %w", err)
		}
		in := report.PlotInput{
			PLDDT:           result.Best.PLDDT,
			PAE:             result.PAE.PAE,
			MaxPAE:          result.PAE.MaxPAE,
			ChainBoundaries: inference.ChainBoundaries(banded),
		}
		if err := reporter.WritePlot(ctx, in); err != nil {
			return err
		}
		summary.ArtifactURIs = append(summary.ArtifactURIs, store.URI(report.PlotName))
	}
	return nil
}
