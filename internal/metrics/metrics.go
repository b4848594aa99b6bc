package metrics

import (
	"math"
	"sort"
	"time"

	"stockkit/internal/domain"

	"github.com/montanaflynn/stats"
)

const (
	// DefaultPeriodsPerYear annualizes daily observations.
	DefaultPeriodsPerYear = 252
	// DefaultCVaRLevel is the 95% tail confidence level.
	DefaultCVaRLevel = 0.95
	// WeightSumTolerance bounds how far a weight vector may drift from
	// full investment before it is rejected.
	WeightSumTolerance = 1e-6
)

// Options carries the assumptions shared by every statistic: the per-period
// risk-free rate, the annualization factor, and the CVaR confidence level.
// Zero PeriodsPerYear or CVaRLevel fall back to the defaults.
type Options struct {
	RiskFree       float64
	PeriodsPerYear int
	CVaRLevel      float64
}

func (o Options) periods() int {
	if o.PeriodsPerYear <= 0 {
		return DefaultPeriodsPerYear
	}
	return o.PeriodsPerYear
}

func (o Options) cvarLevel() float64 {
	if o.CVaRLevel == 0 {
		return DefaultCVaRLevel
	}
	return o.CVaRLevel
}

// AnnualizedReturn scales the mean periodic return by periods per year.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	mean, err := stats.Mean(stats.Float64Data(returns))
	if err != nil {
		return math.NaN()
	}
	return mean * float64(periodsPerYear)
}

// AnnualizedVolatility scales the population standard deviation of the
// periodic returns by the square root of periods per year.
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	sd, err := stats.StandardDeviationPopulation(stats.Float64Data(returns))
	if err != nil {
		return math.NaN()
	}
	return sd * math.Sqrt(float64(periodsPerYear))
}

// SharpeRatio is the annualized excess return over annualized volatility.
// rf is the per-period risk-free rate. NaN when volatility is zero.
func SharpeRatio(returns []float64, rf float64, periodsPerYear int) float64 {
	annRet := AnnualizedReturn(returns, periodsPerYear)
	annVol := AnnualizedVolatility(returns, periodsPerYear)
	if annVol == 0 || math.IsNaN(annVol) {
		return math.NaN()
	}
	return (annRet - rf*float64(periodsPerYear)) / annVol
}

// SortinoRatio replaces the Sharpe denominator with annualized downside
// deviation: the population standard deviation of the returns falling below
// target (usually 0). NaN when no period falls below the target.
func SortinoRatio(returns []float64, rf, target float64, periodsPerYear int) float64 {
	downside := []float64{}
	for _, r := range returns {
		if r < target {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.NaN()
	}
	dd, err := stats.StandardDeviationPopulation(stats.Float64Data(downside))
	if err != nil || dd == 0 {
		return math.NaN()
	}
	annRet := AnnualizedReturn(returns, periodsPerYear)
	annDD := dd * math.Sqrt(float64(periodsPerYear))
	return (annRet - rf*float64(periodsPerYear)) / annDD
}

// MaxDrawdown compounds the returns into a wealth curve and reports the
// worst peak-to-trough fractional decline. Always <= 0; exactly 0 when the
// curve never declines.
func MaxDrawdown(returns []float64) float64 {
	wealth := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := wealth/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// CVaR returns the mean of the worst (1-level) fraction of returns together
// with the VaR threshold bounding that tail. Both are signed returns, so a
// loss is negative. The series must be long enough for the tail to hold at
// least one observation.
func CVaR(returns []float64, level float64) (cvar, varThreshold float64, err error) {
	if level <= 0 || level >= 1 {
		return 0, 0, domain.DataFormatErrf("cvar level must be in (0, 1), got %v", level)
	}
	n := len(returns)
	minObs := int(math.Ceil(1 / (1 - level)))
	if n < minObs {
		return 0, 0, domain.DataFormatErrf("cvar at %.0f%% needs at least %d observations, got %d",
			level*100, minObs, n)
	}
	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	k := int(float64(n) * (1 - level))
	if k < 1 {
		k = 1
	}
	sum := 0.0
	for _, r := range sorted[:k] {
		sum += r
	}
	return sum / float64(k), sorted[k-1], nil
}

// CAGR is the compound annual growth rate between the first and last point
// of a price (or wealth) series, using calendar time between the dates.
func CAGR(dates []time.Time, values []float64) (float64, error) {
	if len(dates) < 2 || len(dates) != len(values) {
		return 0, domain.DataFormatErrf("cagr needs two dated observations, got %d dates and %d values",
			len(dates), len(values))
	}
	first, last := values[0], values[len(values)-1]
	if first <= 0 || last <= 0 {
		return 0, domain.DataFormatErrf("cagr undefined for non-positive endpoint values")
	}
	years := dates[len(dates)-1].Sub(dates[0]).Hours() / 24 / 365.25
	if years <= 0 {
		return 0, domain.DataFormatErrf("cagr needs a positive time span")
	}
	return math.Pow(last/first, 1/years) - 1, nil
}

// PortfolioStats applies a full-investment weight vector to a returns table
// and computes the complete statistics record for the resulting portfolio
// return series.
func PortfolioStats(weights []float64, returns domain.ReturnsTable, opts Options) (domain.StatsRecord, error) {
	if err := validateWeightSum(weights); err != nil {
		return domain.StatsRecord{}, err
	}
	series, err := returns.Weighted(weights)
	if err != nil {
		return domain.StatsRecord{}, err
	}
	if len(series) < 2 {
		return domain.StatsRecord{}, domain.DataFormatErrf("need at least 2 return observations, got %d", len(series))
	}

	cvar, _, err := CVaR(series, opts.cvarLevel())
	if err != nil {
		return domain.StatsRecord{}, err
	}

	wealth := make([]float64, len(series))
	w := 1.0
	for i, r := range series {
		w *= 1 + r
		wealth[i] = w
	}
	// a wiped-out portfolio (some period return <= -1) has no defined
	// growth rate; that one case is the NaN marker, anything else is a
	// data problem the caller hears about
	cagr := math.NaN()
	if wealth[0] > 0 && wealth[len(wealth)-1] > 0 {
		cagr, err = CAGR(returns.Dates, wealth)
		if err != nil {
			return domain.StatsRecord{}, err
		}
	}

	periods := opts.periods()
	return domain.StatsRecord{
		AnnReturn:   AnnualizedReturn(series, periods),
		AnnVol:      AnnualizedVolatility(series, periods),
		Sharpe:      SharpeRatio(series, opts.RiskFree, periods),
		Sortino:     SortinoRatio(series, opts.RiskFree, 0, periods),
		MaxDrawdown: MaxDrawdown(series),
		CVaR:        cvar,
		CAGR:        cagr,
	}, nil
}

func validateWeightSum(weights []float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > WeightSumTolerance {
		return domain.DataFormatErrf("weights sum to %v, expected 1", sum)
	}
	return nil
}
