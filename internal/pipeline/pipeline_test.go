package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/features"
	"github.com/seqcraft/foldpipe/internal/inference"
	"github.com/seqcraft/foldpipe/internal/metrics"
	"github.com/seqcraft/foldpipe/internal/mirror"
	"github.com/seqcraft/foldpipe/internal/msa"
	"github.com/seqcraft/foldpipe/internal/report"
	"github.com/seqcraft/foldpipe/internal/setup"
)

const testSeq = "MKVLAAGITTMLATGAAQAA" // 20 residues

// fakeSearcher records queried sequences and serves canned hits.
type fakeSearcher struct {
	queries []string
	hits    bool
}

func (f *fakeSearcher) Query(_ context.Context, fastaPath string, db msa.Database, chunkDone func(int)) ([]msa.Result, error) {
	data, err := os.ReadFile(fastaPath)
	if err != nil {
		return nil, err
	}
	sequence := strings.TrimSpace(strings.TrimPrefix(string(data), ">query\n"))
	f.queries = append(f.queries, db.Name+":"+sequence)

	results := make([]msa.Result, 0, db.NumStreamedChunks)
	for i := 1; i <= db.NumStreamedChunks; i++ {
		res := msa.Result{
			TargetName: fmt.Sprintf("%s.%d", db.Name, i),
			Alignment:  msa.Alignment{},
			EValues:    map[string]float64{},
		}
		if f.hits {
			res.Alignment = msa.Alignment{
				Sequences:      []string{sequence, sequence},
				DeletionMatrix: [][]int{make([]int, len(sequence)), make([]int, len(sequence))},
				Descriptions:   []string{"query", fmt.Sprintf("tr|H%d|H%d_HUMAN hit", i, i)},
			}
			res.EValues = map[string]float64{fmt.Sprintf("tr|H%d|H%d_HUMAN", i, i): 1e-5}
		}
		results = append(results, res)
		if chunkDone != nil {
			chunkDone(i)
		}
	}
	return results, nil
}

// fakeModel emits a structure with one CA atom per query residue.
type fakeModel struct {
	name       string
	confidence float64
	numRes     int
	pae        bool
}

func (m *fakeModel) Process(_ context.Context, b features.Bundle, _ int64) (features.Bundle, error) {
	return b, nil
}

func (m *fakeModel) Predict(_ context.Context, _ features.Bundle, _ int64) (*inference.Prediction, error) {
	var pdb strings.Builder
	plddt := make([]float64, m.numRes)
	for i := 0; i < m.numRes; i++ {
		fmt.Fprintf(&pdb, "ATOM  %5d  CA  ALA A%4d      11.000   6.000  -6.000  1.00 90.00           C\n", i+1, i+1)
		plddt[i] = 85
	}
	pdb.WriteString("END\n")

	p := &inference.Prediction{
		ModelName:         m.name,
		PLDDT:             plddt,
		RankingConfidence: m.confidence,
		UnrelaxedPDB:      pdb.String(),
	}
	if m.pae {
		p.PAE = [][]float64{{0.1}}
		p.MaxPAE = 31.75
	}
	return p, nil
}

func testConfig(t *testing.T, out string) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Output.Destination = out
	cfg.Plot.Enabled = false
	cfg.Relax.Enabled = false
	cfg.Search.TempDir = t.TempDir()
	cfg.Params.Dir = t.TempDir()
	paramsDir := filepath.Join(cfg.Params.Dir, "params")
	if err := os.MkdirAll(paramsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, multimer := range []bool{false, true} {
		for _, name := range inference.Presets(multimer) {
			path := filepath.Join(paramsDir, "params_"+name+".npz")
			if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	cfg.Databases = config.DatabasesConfig{
		{Name: "uniref90", Path: "uniref90.fasta", NumStreamedChunks: 2, ZValue: 100, MaxHits: 10},
		{Name: "uniprot", Path: "uniprot.fasta", NumStreamedChunks: 1, ZValue: 100, MaxHits: 10, HeteromerOnly: true},
	}
	return cfg
}

func testOptions(t *testing.T, searcher msa.Searcher, numRes int) []Option {
	t.Helper()
	factory := func(name string) (inference.Model, error) {
		return &fakeModel{name: name, confidence: 80, numRes: numRes, pae: name == "model_2_ptm"}, nil
	}
	sel := mirror.New([]string{""}, "https://mirror%s/", "probe",
		mirror.WithProbe(func(context.Context, string) error { return nil }))
	return []Option{
		WithToolCheck(func(config.ToolsConfig, bool) (setup.Availability, error) {
			return setup.Availability{}, nil
		}),
		WithParamsBootstrap(func(context.Context, config.ParamsConfig) error { return nil }),
		WithSelector(sel),
		WithSearcher(searcher),
		WithModelFactory(factory),
		WithoutProgress(),
	}
}

func TestRunZeroHitMonomer(t *testing.T) {
	out := t.TempDir()
	searcher := &fakeSearcher{hits: false}
	p := New(testConfig(t, out), testOptions(t, searcher, len(testSeq))...)

	summary, err := p.Run(context.Background(), []string{testSeq})
	if err != nil {
		t.Fatal(err)
	}
	if summary.BestModel == "" {
		t.Fatal("no best model selected")
	}
	if summary.MeanPLDDT != 85 {
		t.Fatalf("mean pLDDT = %v, want 85", summary.MeanPLDDT)
	}

	// Structure and PAE artifacts land even with zero database hits.
	if _, err := os.Stat(filepath.Join(out, report.StructureName)); err != nil {
		t.Fatalf("structure artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, report.PAEName)); err != nil {
		t.Fatalf("aligned-error artifact missing: %v", err)
	}

	// The heteromer-only database is skipped for monomers.
	for _, q := range searcher.queries {
		if strings.HasPrefix(q, "uniprot:") {
			t.Fatalf("monomer job searched the heteromer-only database: %v", searcher.queries)
		}
	}
}

func TestRunHomomerSearchesOncePerUniqueChain(t *testing.T) {
	out := t.TempDir()
	searcher := &fakeSearcher{hits: true}
	cfg := testConfig(t, out)
	p := New(cfg, testOptions(t, searcher, 2*len(testSeq))...)

	summary, err := p.Run(context.Background(), []string{testSeq, testSeq})
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Job.Type.Multimer() {
		t.Fatalf("job type = %v, want a multimer", summary.Job.Type)
	}
	// One uniref90 search despite two chains, no uniprot for a homomer.
	if len(searcher.queries) != 1 {
		t.Fatalf("searches issued = %v, want a single cached search", searcher.queries)
	}
}

func TestRunHeteromerQueriesPairingDatabase(t *testing.T) {
	out := t.TempDir()
	searcher := &fakeSearcher{hits: true}
	second := "ARNDARNDARNDARNDARND"
	p := New(testConfig(t, out), testOptions(t, searcher, len(testSeq)+len(second))...)

	if _, err := p.Run(context.Background(), []string{testSeq, second}); err != nil {
		t.Fatal(err)
	}
	uniprot := 0
	for _, q := range searcher.queries {
		if strings.HasPrefix(q, "uniprot:") {
			uniprot++
		}
	}
	if uniprot != 2 {
		t.Fatalf("uniprot searches = %d, want one per distinct chain", uniprot)
	}
}

func TestRunValidatesBeforeAnyNetworkAccess(t *testing.T) {
	var probes atomic.Int32
	sel := mirror.New([]string{""}, "https://mirror%s/", "probe",
		mirror.WithProbe(func(context.Context, string) error {
			probes.Add(1)
			return nil
		}))
	paramsCalled := false

	p := New(testConfig(t, t.TempDir()),
		WithToolCheck(func(config.ToolsConfig, bool) (setup.Availability, error) {
			return setup.Availability{}, nil
		}),
		WithParamsBootstrap(func(context.Context, config.ParamsConfig) error {
			paramsCalled = true
			return nil
		}),
		WithSelector(sel),
		WithSearcher(&fakeSearcher{}),
		WithoutProgress(),
	)

	_, err := p.Run(context.Background(), []string{"TOO.SHORT"})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if probes.Load() != 0 {
		t.Fatal("mirror was probed before validation failed")
	}
	if paramsCalled {
		t.Fatal("parameter bootstrap ran before validation failed")
	}
}

func TestRunMissingToolAborts(t *testing.T) {
	wantErr := errors.New("jackhmmer gone")
	p := New(testConfig(t, t.TempDir()),
		WithToolCheck(func(config.ToolsConfig, bool) (setup.Availability, error) {
			return setup.Availability{}, wantErr
		}),
		WithSearcher(&fakeSearcher{}),
		WithoutProgress(),
	)
	if _, err := p.Run(context.Background(), []string{testSeq}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the tool-check failure", err)
	}
}

func TestRunPlotArtifact(t *testing.T) {
	out := t.TempDir()
	cfg := testConfig(t, out)
	cfg.Plot.Enabled = true
	p := New(cfg, testOptions(t, &fakeSearcher{hits: true}, len(testSeq))...)

	if _, err := p.Run(context.Background(), []string{testSeq}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, report.PlotName)); err != nil {
		t.Fatalf("plot artifact missing: %v", err)
	}
}

func TestRunPlotSkippedWithoutPAE(t *testing.T) {
	out := t.TempDir()
	cfg := testConfig(t, out)
	cfg.Plot.Enabled = true
	opts := testOptions(t, &fakeSearcher{hits: true}, len(testSeq))
	// No model emits a pairwise error matrix.
	opts = append(opts, WithModelFactory(func(name string) (inference.Model, error) {
		return &fakeModel{name: name, confidence: 80, numRes: len(testSeq)}, nil
	}))
	p := New(cfg, opts...)

	if _, err := p.Run(context.Background(), []string{testSeq}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, report.StructureName)); err != nil {
		t.Fatalf("structure artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, report.PlotName)); !os.IsNotExist(err) {
		t.Fatalf("plot artifact must not land without a pairwise error matrix: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, report.PAEName)); !os.IsNotExist(err) {
		t.Fatalf("aligned-error artifact must not land without a matrix: %v", err)
	}
}

func TestRunObservesMergedHits(t *testing.T) {
	m := metrics.Init("foldpipe_pipelinetest")
	p := New(testConfig(t, t.TempDir()), testOptions(t, &fakeSearcher{hits: true}, len(testSeq))...)

	if _, err := p.Run(context.Background(), []string{testSeq}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.CollectAndCount(m.MergedHits); got == 0 {
		t.Fatal("merged alignment sizes were not observed")
	}
}
