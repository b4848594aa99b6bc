// Package analyze composes the loader, return calculator, allocator and
// statistics into the one-call pipeline the notebooks use.
package analyze

import (
	"stockkit/internal/allocate"
	"stockkit/internal/domain"
	"stockkit/internal/metrics"
	"stockkit/internal/prices"
)

// Options carries every assumption the pipeline makes. DefaultOptions is
// the single source of the defaults; nothing downstream hard-codes them.
type Options struct {
	DateColumn     string
	Method         prices.Method
	RiskFreeAnnual float64
	PeriodsPerYear int
	CVaRLevel      float64
	// Bounds aligns with the CSV's asset column order. Leave nil to use
	// NamedBounds or the (0, 1) default.
	Bounds []allocate.Bound
	// NamedBounds constrains assets by column name; assets not listed get
	// the (0, 1) default. Ignored when Bounds is set.
	NamedBounds map[string]allocate.Bound
}

func DefaultOptions() Options {
	return Options{
		DateColumn:     prices.DefaultDateColumn,
		Method:         prices.Simple,
		RiskFreeAnnual: 0,
		PeriodsPerYear: metrics.DefaultPeriodsPerYear,
		CVaRLevel:      metrics.DefaultCVaRLevel,
	}
}

// Result pairs the solved weight vector with the statistics of the
// portfolio it describes.
type Result struct {
	Assets  []string           `json:"assets"`
	Weights map[string]float64 `json:"weights"`
	Stats   domain.StatsRecord `json:"stats"`
}

// QuickMaxSharpeFromCSV runs load -> returns -> max-sharpe -> stats with the
// supplied options. It fails on exactly the error conditions of its
// constituents; nothing is retried or defaulted away.
func QuickMaxSharpeFromCSV(path string, opts Options) (*Result, error) {
	if opts.DateColumn == "" {
		opts.DateColumn = prices.DefaultDateColumn
	}
	if opts.Method == "" {
		opts.Method = prices.Simple
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = metrics.DefaultPeriodsPerYear
	}
	if opts.CVaRLevel == 0 {
		opts.CVaRLevel = metrics.DefaultCVaRLevel
	}

	table, err := prices.LoadCSV(path, opts.DateColumn)
	if err != nil {
		return nil, err
	}
	returns, err := prices.ToReturns(table, opts.Method)
	if err != nil {
		return nil, err
	}

	bounds := opts.Bounds
	if bounds == nil {
		bounds = boundsForAssets(returns.Assets, opts.NamedBounds)
	}
	rf := opts.RiskFreeAnnual / float64(opts.PeriodsPerYear)

	weights, err := allocate.MaxSharpeWeights(returns, rf, bounds, opts.PeriodsPerYear)
	if err != nil {
		return nil, err
	}
	stats, err := metrics.PortfolioStats(weights, returns, metrics.Options{
		RiskFree:       rf,
		PeriodsPerYear: opts.PeriodsPerYear,
		CVaRLevel:      opts.CVaRLevel,
	})
	if err != nil {
		return nil, err
	}

	weightsByAsset := map[string]float64{}
	for j, asset := range returns.Assets {
		weightsByAsset[asset] = weights[j]
	}
	return &Result{
		Assets:  returns.Assets,
		Weights: weightsByAsset,
		Stats:   stats,
	}, nil
}

func boundsForAssets(assets []string, named map[string]allocate.Bound) []allocate.Bound {
	bounds := allocate.DefaultBounds(len(assets))
	for j, asset := range assets {
		if b, ok := named[asset]; ok {
			bounds[j] = b
		}
	}
	return bounds
}
