package engine

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/wildfunctions/evogp/pkg/strategy"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all parameters for an evolutionary run.
type Config struct {
	Target          string                `yaml:"target" json:"target"`
	Pool            string                `yaml:"pool" json:"pool"`
	Strategy        string                `yaml:"strategy" json:"strategy"`
	Population      int                   `yaml:"population" json:"population"`
	Offspring       int                   `yaml:"offspring" json:"offspring"` // lambda; 0 = twice the population
	Generations     int                   `yaml:"generations" json:"generations"`
	Samples         int                   `yaml:"samples" json:"samples"`
	MinDepth        int                   `yaml:"min_depth" json:"min_depth"`
	MaxDepth        int                   `yaml:"max_depth" json:"max_depth"`
	Tournament      int                   `yaml:"tournament" json:"tournament"`
	CxPb            float64               `yaml:"cxpb" json:"cxpb"`
	MutPb           float64               `yaml:"mutpb" json:"mutpb"`
	Seed            int64                 `yaml:"seed" json:"seed"`
	Format          string                `yaml:"format" json:"format"` // "text" or "json"
	Verbose         bool                  `yaml:"verbose" json:"verbose"`
	Workers         int                   `yaml:"workers" json:"workers"`
	HallOfFame      int                   `yaml:"hall_of_fame" json:"hall_of_fame"`
	Weights         symreg.FitnessWeights `yaml:"weights" json:"weights"`
	Limits          strategy.Limits       `yaml:"limits" json:"limits"`
	StagnationLimit int                   `yaml:"stagnation_limit" json:"stagnation_limit"`
	Archive         string                `yaml:"archive" json:"archive,omitempty"` // badger directory
	Logbook         string                `yaml:"logbook" json:"logbook,omitempty"` // xlsx path
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Target:          "poly3",
		Pool:            "moderate",
		Strategy:        "simple",
		Population:      300,
		Generations:     200,
		Samples:         50,
		MinDepth:        2,
		MaxDepth:        5,
		Tournament:      5,
		CxPb:            0.5,
		MutPb:           0.2,
		Seed:            0, // 0 = random
		Format:          "text",
		Verbose:         false,
		Workers:         runtime.NumCPU(),
		HallOfFame:      10,
		Weights:         symreg.DefaultWeights(),
		Limits:          strategy.DefaultLimits(),
		StagnationLimit: 50,
	}
}

// LoadConfig overlays the YAML file at path onto base. Keys missing from
// the file keep their value in base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges. Names of targets, pools and strategies are
// resolved by New.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}
	check(c.Population >= 2, "population must be at least 2, got %d", c.Population)
	check(c.Offspring >= 0, "offspring must not be negative, got %d", c.Offspring)
	check(c.Generations >= 1, "generations must be positive, got %d", c.Generations)
	check(c.Samples >= 1, "samples must be positive, got %d", c.Samples)
	check(c.MinDepth >= 1, "min_depth must be at least 1, got %d", c.MinDepth)
	check(c.MaxDepth > c.MinDepth, "max_depth %d must exceed min_depth %d", c.MaxDepth, c.MinDepth)
	check(c.Tournament >= 1, "tournament must be positive, got %d", c.Tournament)
	check(c.CxPb >= 0 && c.CxPb <= 1, "cxpb %v out of [0, 1]", c.CxPb)
	check(c.MutPb >= 0 && c.MutPb <= 1, "mutpb %v out of [0, 1]", c.MutPb)
	check(c.Format == "text" || c.Format == "json", "format must be text or json, got %q", c.Format)
	check(c.HallOfFame >= 1, "hall_of_fame must be positive, got %d", c.HallOfFame)
	check(c.StagnationLimit >= 0, "stagnation_limit must not be negative, got %d", c.StagnationLimit)
	check(c.Limits.MaxHeight >= c.MaxDepth, "limits.max_height %d below max_depth %d", c.Limits.MaxHeight, c.MaxDepth)
	check(c.Limits.MaxSize >= 1, "limits.max_size must be positive, got %d", c.Limits.MaxSize)
	return errors.Join(errs...)
}

// params maps the config onto strategy parameters for a budget of
// generations.
func (c Config) params(generations int) strategy.Params {
	lambda := c.Offspring
	if lambda == 0 {
		lambda = 2 * c.Population
	}
	return strategy.Params{
		Mu:          c.Population,
		Lambda:      lambda,
		CxPb:        c.CxPb,
		MutPb:       c.MutPb,
		Generations: generations,
	}
}
