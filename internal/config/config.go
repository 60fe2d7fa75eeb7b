// Package config loads pipeline configuration from built-in defaults, an
// optional YAML file, and environment variable overrides (in that order).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/seqcraft/foldpipe/internal/logging"
)

type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Relax     RelaxConfig     `yaml:"relax"`
	Plot      PlotConfig      `yaml:"plot"`
	Tools     ToolsConfig     `yaml:"tools"`
	Params    ParamsConfig    `yaml:"params"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	Search    SearchConfig    `yaml:"search"`
	Databases DatabasesConfig `yaml:"databases"`
	Logging   logging.Config  `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// OutputConfig controls where prediction artifacts are persisted.
// An empty destination discards all artifacts.
type OutputConfig struct {
	// Destination is a local directory or a bucket URL (gs://, s3://).
	Destination string `yaml:"destination"`
}

type RelaxConfig struct {
	Enabled bool `yaml:"enabled"`
	// Fixed relaxation parameters. MaxIterations 0 means run to convergence.
	MaxIterations      int     `yaml:"max_iterations"`
	Tolerance          float64 `yaml:"tolerance"`
	Stiffness          float64 `yaml:"stiffness"`
	MaxOuterIterations int     `yaml:"max_outer_iterations"`
}

type PlotConfig struct {
	Enabled        bool `yaml:"enabled"`
	ShowSidechains bool `yaml:"show_sidechains"`
}

// ToolsConfig names the external binaries the pipeline shells out to.
type ToolsConfig struct {
	JackhmmerBinary string `yaml:"jackhmmer_binary"`
	PredictorBinary string `yaml:"predictor_binary"`
	RelaxerBinary   string `yaml:"relaxer_binary"`
}

type ParamsConfig struct {
	// Dir holds the extracted model parameter files under Dir/params/.
	Dir string `yaml:"dir"`
	URL string `yaml:"url"`
}

type MirrorConfig struct {
	// Suffixes are the candidate regional mirror suffixes.
	Suffixes []string `yaml:"suffixes"`
	// RootPattern yields the database root once a suffix is chosen.
	RootPattern string `yaml:"root_pattern"`
	// TestObject is a known-present object used for reachability probes,
	// relative to the mirror root.
	TestObject string `yaml:"test_object"`
}

type SearchConfig struct {
	// TempDir holds the per-sequence FASTA files and fetched database
	// chunks during a search. Empty means the OS temp directory.
	TempDir string `yaml:"temp_dir"`
}

// DatabaseConfig describes one remote genetic database. Static configuration,
// never mutated at runtime.
type DatabaseConfig struct {
	Name string `yaml:"name"`
	// Path is the chunked database path relative to the mirror root.
	// Chunk i lives at Path + "." + i.
	Path              string `yaml:"path"`
	NumStreamedChunks int    `yaml:"num_streamed_chunks"`
	// ZValue is the number of sequences in the database, used to normalize
	// search significance scores.
	ZValue int64 `yaml:"z_value"`
	// MaxHits caps the merged alignment for this database.
	MaxHits int `yaml:"max_hits"`
	// HeteromerOnly databases are searched only for heteromer jobs.
	HeteromerOnly bool `yaml:"heteromer_only"`
}

type DatabasesConfig []DatabaseConfig

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Defaults returns the built-in configuration matching the public
// AlphaFold Colab database set.
func Defaults() Config {
	return Config{
		Relax: RelaxConfig{
			MaxIterations:      0,
			Tolerance:          2.39,
			Stiffness:          10.0,
			MaxOuterIterations: 3,
		},
		Plot: PlotConfig{
			Enabled:        true,
			ShowSidechains: true,
		},
		Tools: ToolsConfig{
			JackhmmerBinary: "jackhmmer",
			PredictorBinary: "foldpredict",
			RelaxerBinary:   "amberrelax",
		},
		Params: ParamsConfig{
			Dir: "bins/alphafold",
			URL: "https://storage.googleapis.com/alphafold/alphafold_params_colab_2022-12-06.tar",
		},
		Mirror: MirrorConfig{
			Suffixes:    []string{"", "-europe", "-asia"},
			RootPattern: "https://storage.googleapis.com/alphafold-colab%s/latest/",
			TestObject:  "uniref90_2021_03.fasta.1",
		},
		Databases: DatabasesConfig{
			{
				Name:              "uniref90",
				Path:              "uniref90_2021_03.fasta",
				NumStreamedChunks: 59,
				ZValue:            135_301_051,
				MaxHits:           10_000,
			},
			{
				Name:              "smallbfd",
				Path:              "bfd-first_non_consensus_sequences.fasta",
				NumStreamedChunks: 17,
				ZValue:            65_984_053,
				MaxHits:           5_000,
			},
			{
				Name:              "mgnify",
				Path:              "mgy_clusters_2019_05.fasta",
				NumStreamedChunks: 71,
				ZValue:            304_820_129,
				MaxHits:           501,
			},
			{
				// Swiss-Prot and TrEMBL are concatenated together as UniProt.
				Name:              "uniprot",
				Path:              "uniprot_2021_03.fasta",
				NumStreamedChunks: 98,
				ZValue:            219_174_961 + 565_254,
				MaxHits:           50_000,
				HeteromerOnly:     true,
			},
		},
		Logging: logging.Config{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load returns the defaults merged with the YAML file at path (when non-empty)
// and environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Mirror.Suffixes) == 0 {
		return fmt.Errorf("config: at least one mirror suffix required")
	}
	if c.Mirror.RootPattern == "" {
		return fmt.Errorf("config: mirror root pattern required")
	}
	if len(c.Databases) == 0 {
		return fmt.Errorf("config: at least one database required")
	}
	for _, db := range c.Databases {
		if db.Name == "" || db.Path == "" {
			return fmt.Errorf("config: database name and path required")
		}
		if db.NumStreamedChunks <= 0 {
			return fmt.Errorf("config: database %s: num_streamed_chunks must be positive", db.Name)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FOLDPIPE_OUTPUT"); v != "" {
		cfg.Output.Destination = v
	}
	if v := os.Getenv("FOLDPIPE_PARAMS_DIR"); v != "" {
		cfg.Params.Dir = v
	}
	if v := os.Getenv("FOLDPIPE_PARAMS_URL"); v != "" {
		cfg.Params.URL = v
	}
	if v := os.Getenv("FOLDPIPE_JACKHMMER"); v != "" {
		cfg.Tools.JackhmmerBinary = v
	}
	if v := os.Getenv("FOLDPIPE_PREDICTOR"); v != "" {
		cfg.Tools.PredictorBinary = v
	}
	if v := os.Getenv("FOLDPIPE_RELAXER"); v != "" {
		cfg.Tools.RelaxerBinary = v
	}
	if v := os.Getenv("FOLDPIPE_TEMP_DIR"); v != "" {
		cfg.Search.TempDir = v
	}
	if v := os.Getenv("FOLDPIPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FOLDPIPE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FOLDPIPE_METRICS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("FOLDPIPE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Address = v
	}
}
