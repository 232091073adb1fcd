package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/phasebench/internal/metrics"
)

const (
	ExecutorLocal  = "local"
	ExecutorDocker = "docker"
)

type Config struct {
	Executable       string              `yaml:"executable"`
	OutputDir        string              `yaml:"output_dir"`
	EnvFile          string              `yaml:"env_file"`
	KeepOutput       bool                `yaml:"keep_output"`
	TerminatorMinLen int                 `yaml:"terminator_min_len"`
	Build            Build               `yaml:"build"`
	Executor         Executor            `yaml:"executor"`
	Units            map[string][]string `yaml:"units"`
	Phases           []Phase             `yaml:"phases"`
	Results          Results             `yaml:"results"`
}

// Build is the optional step producing the executable before the first
// iteration. It is skipped when the executable already exists.
type Build struct {
	Command string `yaml:"command"`
	Dir     string `yaml:"dir"`
}

type Executor struct {
	Kind  string `yaml:"kind"`
	Image string `yaml:"image"`
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
	Mounts  []Mount       `yaml:"mounts"`
}

type Mount struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"read_only"`
}

// Phase is one named stage of the benchmarked pipeline. Header is matched as
// a substring of the report line opening the phase's section.
type Phase struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Header string `yaml:"header"`
	File   string `yaml:"file"`
}

type Results struct {
	Timestamped bool `yaml:"timestamped"`
}

// DefaultPhases is the phase set printed by the reference ML pipeline.
func DefaultPhases() []Phase {
	return []Phase{
		{ID: "envload", Name: "Environment Load", Header: "envload Metrics", File: "envload.csv"},
		{ID: "loadmodel", Name: "Load Model", Header: "loadmodel Metrics", File: "loadmodel.csv"},
		{ID: "readimg", Name: "Read Image", Header: "readimg Metrics", File: "readimg.csv"},
		{ID: "redbox", Name: "Red Box", Header: "RED BOX Phase Metrics", File: "redbox.csv"},
		{ID: "preprocessing", Name: "Pre Processing", Header: "Pre-processing Metrics", File: "preprocessing.csv"},
		{ID: "inference", Name: "Inference", Header: "Inference Metrics", File: "inference.csv"},
		{ID: "postprocessing", Name: "Post Processing", Header: "Post-processing Metrics", File: "postprocessing.csv"},
		{ID: "greenbox", Name: "Green Box", Header: "GREEN BOX Phase Metrics", File: "greenbox.csv"},
		{ID: "total", Name: "Total", Header: "Total Metrics", File: "total.csv"},
	}
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{
		Executable: "../target/release/rust-ml-benchmark",
		Build: Build{
			Command: "cargo build --release --manifest-path=../Cargo.toml",
		},
	}
	if err := validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// UnitTable builds the time unit table from the configured spellings.
func (c *Config) UnitTable() (metrics.UnitTable, error) {
	return metrics.NewUnitTable(c.Units)
}

func validate(cfg *Config) error {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "bench"
	}
	if cfg.TerminatorMinLen == 0 {
		cfg.TerminatorMinLen = metrics.DefaultTerminatorLen
	}
	if cfg.TerminatorMinLen < 0 {
		return fmt.Errorf("terminator_min_len must not be negative")
	}
	if cfg.Units == nil {
		cfg.Units = metrics.DefaultSpellings()
	}
	if _, err := cfg.UnitTable(); err != nil {
		return fmt.Errorf("units: %w", err)
	}

	switch cfg.Executor.Kind {
	case "":
		cfg.Executor.Kind = ExecutorLocal
	case ExecutorLocal:
	case ExecutorDocker:
		if cfg.Executor.Image == "" {
			return fmt.Errorf("executor: image is required for the docker executor")
		}
	default:
		return fmt.Errorf("executor: unknown kind %q", cfg.Executor.Kind)
	}
	if cfg.Executor.Timeout < 0 {
		return fmt.Errorf("executor: timeout must not be negative")
	}
	for i, m := range cfg.Executor.Mounts {
		if m.Source == "" || m.Target == "" {
			return fmt.Errorf("executor: mount %d needs source and target", i)
		}
	}

	if len(cfg.Phases) == 0 {
		cfg.Phases = DefaultPhases()
	}
	ids := map[string]bool{}
	files := map[string]bool{}
	for i := range cfg.Phases {
		p := &cfg.Phases[i]
		if p.ID == "" {
			return fmt.Errorf("phase %d: id is required", i)
		}
		if p.Header == "" {
			return fmt.Errorf("phase %q: header is required", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.File == "" {
			p.File = p.ID + ".csv"
		}
		if filepath.Base(p.File) != p.File {
			return fmt.Errorf("phase %q: file must be a plain file name", p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("phase %q: duplicate id", p.ID)
		}
		if files[p.File] {
			return fmt.Errorf("phase %q: file %s already used by another phase", p.ID, p.File)
		}
		ids[p.ID] = true
		files[p.File] = true
	}
	return nil
}
