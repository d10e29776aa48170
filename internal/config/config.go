// Package config defines the Scry configuration: tunable weights,
// probabilities, and limits for extraction, fuzzing, and mutation.
// All empirically chosen constants live here as defaults so behavior
// can be adjusted without recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScryConfig is the top-level configuration.
type ScryConfig struct {
	// Extract configures schema extraction.
	Extract ExtractConfig `yaml:"extract"`

	// Fuzz configures the coverage-guided fuzzer.
	Fuzz FuzzConfig `yaml:"fuzz"`

	// Mutation configures the mutation engine.
	Mutation MutationConfig `yaml:"mutation"`
}

// ExtractConfig controls evidence collection and schema merging.
type ExtractConfig struct {
	// MaxParams bounds per-callable parameter analysis. Parameters
	// past the limit are left unanalyzed rather than failing the
	// scan.
	MaxParams int `yaml:"max_params"`

	// BooleanThreshold is the minimum weighted boolean-detection
	// score required to classify a return as boolean.
	BooleanThreshold int `yaml:"boolean_threshold"`

	// Confidence holds the per-signal point weights used when
	// bucketing parameter confidence.
	Confidence ConfidenceWeights `yaml:"confidence"`
}

// ConfidenceWeights assigns points per evidence signal. The average
// across a schema's parameters is bucketed into confidence tiers.
type ConfidenceWeights struct {
	Type       int `yaml:"type"`
	Constraint int `yaml:"constraint"`
	Optional   int `yaml:"optional"`
	Match      int `yaml:"match"`
	Class      int `yaml:"class"`
	Position   int `yaml:"position"`
}

// FuzzConfig controls the fuzzing loop and generator biases.
type FuzzConfig struct {
	// Iterations is the iteration budget per target.
	Iterations int `yaml:"iterations"`

	// SeedEntries is the number of purely random inputs used to
	// seed an empty corpus.
	SeedEntries int `yaml:"seed_entries"`

	// MutateProbability selects corpus mutation over fresh
	// generation each iteration.
	MutateProbability float64 `yaml:"mutate_probability"`

	// SampleRate keeps a random fraction of inputs when no
	// coverage instrumentation is available.
	SampleRate float64 `yaml:"sample_rate"`

	// EdgeCaseProbability short-circuits generation with a
	// declared edge-case value when the schema provides one.
	EdgeCaseProbability float64 `yaml:"edge_case_probability"`

	// BoundaryProbability picks a boundary value over uniform
	// sampling for numeric and string generation.
	BoundaryProbability float64 `yaml:"boundary_probability"`
}

// MutationConfig controls mutant generation and scoring.
type MutationConfig struct {
	// TestCommand is the external test runner invoked per mutant.
	// Only its exit status is consulted.
	TestCommand []string `yaml:"test_command"`

	// FastDedup enables mutation-level deduplication and
	// redundant-mutant filtering.
	FastDedup bool `yaml:"fast_dedup"`
}

// DefaultConfig returns the configuration with all defaults applied.
// The probability defaults preserve parity with the original tuning;
// none of them is load-bearing.
func DefaultConfig() *ScryConfig {
	return &ScryConfig{
		Extract: ExtractConfig{
			MaxParams:        32,
			BooleanThreshold: 5,
			Confidence: ConfidenceWeights{
				Type:       3,
				Constraint: 2,
				Optional:   2,
				Match:      2,
				Class:      3,
				Position:   1,
			},
		},
		Fuzz: FuzzConfig{
			Iterations:          500,
			SeedEntries:         5,
			MutateProbability:   0.7,
			SampleRate:          0.2,
			EdgeCaseProbability: 0.4,
			BoundaryProbability: 0.5,
		},
		Mutation: MutationConfig{
			TestCommand: []string{"go", "test", "./..."},
			FastDedup:   true,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults.
// A missing path returns the defaults; an unreadable or malformed
// file is a setup error.
func Load(path string) (*ScryConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// validate rejects configurations that would make the fuzzing loop
// degenerate.
func (c *ScryConfig) validate() error {
	if c.Fuzz.Iterations < 0 {
		return fmt.Errorf("fuzz.iterations must be >= 0, got %d", c.Fuzz.Iterations)
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"fuzz.mutate_probability", c.Fuzz.MutateProbability},
		{"fuzz.sample_rate", c.Fuzz.SampleRate},
		{"fuzz.edge_case_probability", c.Fuzz.EdgeCaseProbability},
		{"fuzz.boundary_probability", c.Fuzz.BoundaryProbability},
	} {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %g", p.name, p.value)
		}
	}
	if c.Extract.MaxParams <= 0 {
		return fmt.Errorf("extract.max_params must be > 0, got %d", c.Extract.MaxParams)
	}
	return nil
}
