package config

import (
	"fmt"
	"os"

	"stockkit/internal/allocate"
	"stockkit/internal/analyze"
	"stockkit/internal/metrics"
	"stockkit/internal/prices"

	"github.com/pelletier/go-toml/v2"
)

// Config is the TOML file the CLI reads. Every field mirrors a pipeline
// option; the file never introduces assumptions the library cannot take per
// call.
type Config struct {
	Analysis AnalysisConfig         `toml:"analysis"`
	Bounds   map[string]BoundConfig `toml:"bounds"`
}

// AnalysisConfig holds the scalar assumptions of a run.
type AnalysisConfig struct {
	DateColumn     string  `toml:"date_col"`
	Method         string  `toml:"method"`
	RiskFreeAnnual float64 `toml:"rf_annual"`
	PeriodsPerYear int     `toml:"periods_per_year"`
	CVaRLevel      float64 `toml:"cvar_level"`
}

// BoundConfig is a per-asset weight constraint, keyed by column name.
type BoundConfig struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			DateColumn:     prices.DefaultDateColumn,
			Method:         string(prices.Simple),
			RiskFreeAnnual: 0,
			PeriodsPerYear: metrics.DefaultPeriodsPerYear,
			CVaRLevel:      metrics.DefaultCVaRLevel,
		},
	}
}

// LoadFromFile merges defaults -> file. An empty path returns the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Options translates the file into pipeline options.
func (c *Config) Options() (analyze.Options, error) {
	method, err := prices.ParseMethod(c.Analysis.Method)
	if err != nil {
		return analyze.Options{}, err
	}
	opts := analyze.DefaultOptions()
	opts.DateColumn = c.Analysis.DateColumn
	opts.Method = method
	opts.RiskFreeAnnual = c.Analysis.RiskFreeAnnual
	opts.PeriodsPerYear = c.Analysis.PeriodsPerYear
	opts.CVaRLevel = c.Analysis.CVaRLevel
	if len(c.Bounds) > 0 {
		opts.NamedBounds = map[string]allocate.Bound{}
		for asset, b := range c.Bounds {
			opts.NamedBounds[asset] = allocate.Bound{Lower: b.Min, Upper: b.Max}
		}
	}
	return opts, nil
}
