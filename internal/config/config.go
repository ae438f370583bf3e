package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

const (
	DefaultDimensions       = 3
	DefaultParamCount       = 12
	DefaultIterations       = 2000
	DefaultMaxSystems       = 10
	DefaultCoefficientLimit = 2.5
	DefaultMaxAttempts      = 9000
	DefaultOutputPath       = "./best_attractors"
	DefaultDensityMin       = -5.0
	DefaultDensityMax       = 5.0
	DefaultWorkers          = 1
	DefaultBatches          = 20

	DefaultTransientSkip     = 100
	DefaultInitialDistance   = 1e-8
	DefaultRenormSteps       = 10
	DefaultConvergence       = 1e-10
	DefaultExtreme           = 1e10
	DefaultLyapunovThreshold = 0.05
)

type SearchConfig struct {
	Dimensions       int            `json:"dimensions" yaml:"dimensions"`
	ParamCount       int            `json:"param_count" yaml:"param_count"`
	Iterations       int            `json:"iterations" yaml:"iterations"`
	MaxSystems       int            `json:"max_systems" yaml:"max_systems"`
	CoefficientLimit float64        `json:"coefficient_limit" yaml:"coefficient_limit"`
	MaxAttempts      int            `json:"max_attempts" yaml:"max_attempts"`
	OutputPath       string         `json:"output_path" yaml:"output_path"`
	Density          DensityBounds  `json:"density_bounds" yaml:"density_bounds"`
	Lyapunov         LyapunovConfig `json:"lyapunov" yaml:"lyapunov"`
	Seed             int64          `json:"seed" yaml:"seed"`
	Workers          int            `json:"workers" yaml:"workers"`
	Batches          int            `json:"batches" yaml:"batches"`
	Render           bool           `json:"render" yaml:"render"`
}

// DensityBounds is the symmetric coordinate range used for seed points and
// as the normalisation ceiling.
type DensityBounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type LyapunovConfig struct {
	TransientSkipSteps   int     `json:"transient_skip_steps" yaml:"transient_skip_steps"`
	InitialDistance      float64 `json:"initial_distance" yaml:"initial_distance"`
	RenormSteps          int     `json:"renorm_steps" yaml:"renorm_steps"`
	ConvergenceThreshold float64 `json:"convergence_threshold" yaml:"convergence_threshold"`
	ExtremeThreshold     float64 `json:"extreme_threshold" yaml:"extreme_threshold"`
	LyapunovThreshold    float64 `json:"lyapunov_threshold" yaml:"lyapunov_threshold"`
}

func Default() *SearchConfig {
	return &SearchConfig{
		Dimensions:       DefaultDimensions,
		ParamCount:       DefaultParamCount,
		Iterations:       DefaultIterations,
		MaxSystems:       DefaultMaxSystems,
		CoefficientLimit: DefaultCoefficientLimit,
		MaxAttempts:      DefaultMaxAttempts,
		OutputPath:       DefaultOutputPath,
		Density:          DensityBounds{Min: DefaultDensityMin, Max: DefaultDensityMax},
		Lyapunov: LyapunovConfig{
			TransientSkipSteps:   DefaultTransientSkip,
			InitialDistance:      DefaultInitialDistance,
			RenormSteps:          DefaultRenormSteps,
			ConvergenceThreshold: DefaultConvergence,
			ExtremeThreshold:     DefaultExtreme,
			LyapunovThreshold:    DefaultLyapunovThreshold,
		},
		Workers: DefaultWorkers,
		Batches: DefaultBatches,
		Render:  true,
	}
}

// CoeffsPerDim is the number of polynomial terms per output coordinate: one
// constant, d linear and d(d+1)/2 quadratic terms.
func CoeffsPerDim(d int) int {
	return 1 + d + d*(d+1)/2
}

// TotalCoeffs is the length of a full coefficient vector.
func TotalCoeffs(d int) int {
	return CoeffsPerDim(d) * d
}

func (c *SearchConfig) Validate() error {
	fail := func(field, reason string) error {
		return &dynamo.ConfigError{Field: field, Reason: reason}
	}

	switch {
	case c.Dimensions < 1:
		return fail("dimensions", "must be >= 1")
	case c.Iterations < 1:
		return fail("iterations", "must be >= 1")
	case c.MaxSystems < 1:
		return fail("max_systems", "must be >= 1")
	case !(c.CoefficientLimit > 0) || math.IsInf(c.CoefficientLimit, 0):
		return fail("coefficient_limit", "must be positive and finite")
	case c.MaxAttempts < 1:
		return fail("max_attempts", "must be >= 1")
	case !(c.Density.Min < c.Density.Max):
		return fail("density_bounds", "min must be less than max")
	case !(c.Density.Max > 0):
		return fail("density_bounds.max", "must be positive")
	case c.Workers < 1:
		return fail("workers", "must be >= 1")
	case c.Batches < 1:
		return fail("batches", "must be >= 1")
	}

	l := c.Lyapunov
	switch {
	case l.TransientSkipSteps < 0:
		return fail("lyapunov.transient_skip_steps", "must be >= 0")
	case !(l.InitialDistance > 0):
		return fail("lyapunov.initial_distance", "must be positive")
	case l.RenormSteps < 1:
		return fail("lyapunov.renorm_steps", "must be >= 1")
	case !(l.ConvergenceThreshold >= 0):
		return fail("lyapunov.convergence_threshold", "must be >= 0")
	case !(l.ExtremeThreshold > l.ConvergenceThreshold):
		return fail("lyapunov.extreme_threshold", "must exceed convergence_threshold")
	case math.IsNaN(l.LyapunovThreshold) || math.IsInf(l.LyapunovThreshold, 0):
		return fail("lyapunov.lyapunov_threshold", "must be finite")
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// fileConfig is the on-disk shape. Besides the current keys it accepts the
// density_constraints{MIN,MAX} and lyap_config sections written by older
// tools; anything else is rejected.
type fileConfig struct {
	SearchConfig `yaml:",inline"`

	DensityConstraints *legacyDensity  `json:"density_constraints,omitempty" yaml:"density_constraints,omitempty"`
	LyapConfig         *LyapunovConfig `json:"lyap_config,omitempty" yaml:"lyap_config,omitempty"`
}

type legacyDensity struct {
	Min *float64 `json:"MIN" yaml:"MIN"`
	Max *float64 `json:"MAX" yaml:"MAX"`
}

// Load reads a JSON (or YAML, by extension) config on top of the defaults and
// validates it. Unknown keys are an error.
func Load(path string) (*SearchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", path, dynamo.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, asYAML bool) (*SearchConfig, error) {
	fc := fileConfig{SearchConfig: *Default()}
	// lyap_config decodes straight into the current section.
	fc.LyapConfig = &fc.SearchConfig.Lyapunov

	if asYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, errors.New("trailing data after config object")
		}
	}

	cfg := fc.SearchConfig
	if fc.LyapConfig != nil && fc.LyapConfig != &fc.SearchConfig.Lyapunov {
		cfg.Lyapunov = *fc.LyapConfig
	}
	if d := fc.DensityConstraints; d != nil {
		if d.Min != nil {
			cfg.Density.Min = *d.Min
		}
		if d.Max != nil {
			cfg.Density.Max = *d.Max
		}
	}
	return &cfg, nil
}

func Save(path string, cfg *SearchConfig) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadOrCreate loads path, or writes the defaults there when it does not
// exist yet. created reports which happened.
func LoadOrCreate(path string) (cfg *SearchConfig, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}
	cfg = Default()
	if err := Save(path, cfg); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}
