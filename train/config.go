package train

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/wordhmm-go/corpus"
)

// Engine selects the forward-backward implementation.
type Engine string

const (
	EngineScaled Engine = "scaled"
	EngineLog    Engine = "log"
)

// Config holds EM training parameters.
type Config struct {
	MaxIterations     int     `yaml:"max_iterations"`
	ConvergenceThresh float64 `yaml:"convergence_threshold"` // total log-likelihood improvement threshold
	Workers           int     `yaml:"workers"`               // concurrent accumulation tasks, 0 = GOMAXPROCS
	Engine            Engine  `yaml:"engine"`
	HeldOutFraction   float64 `yaml:"heldout_fraction"`
	Seed              int64   `yaml:"seed"` // held-out split
	LogLevel          string  `yaml:"log_level"`

	Corpus corpus.Paths `yaml:"corpus"`
}

// DefaultConfig returns reasonable default training parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     20,
		ConvergenceThresh: 0.01,
		Engine:            EngineScaled,
		Seed:              42,
		LogLevel:          "info",
	}
}

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.ConvergenceThresh < 0 {
		return fmt.Errorf("convergence_threshold must not be negative, got %g", c.ConvergenceThresh)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Engine != EngineScaled && c.Engine != EngineLog {
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.HeldOutFraction < 0 || c.HeldOutFraction >= 1 {
		return fmt.Errorf("heldout_fraction must be in [0, 1), got %g", c.HeldOutFraction)
	}
	return nil
}

// LoadConfig reads a YAML config over the defaults. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
