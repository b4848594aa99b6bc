package allocate

import (
	"math"

	"stockkit/internal/domain"
	"stockkit/internal/metrics"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// sumPenalty weights the quadratic penalty keeping the solver on the
	// full-investment plane.
	sumPenalty = 1000.0
	// psdTolerance is the relative eigenvalue floor below which the
	// covariance matrix counts as indefinite rather than merely singular.
	psdTolerance = 1e-8
)

// Bound is a per-asset box constraint on a portfolio weight.
type Bound struct {
	Lower float64
	Upper float64
}

// DefaultBounds is long-only, no leverage: (0, 1) for each asset.
func DefaultBounds(n int) []Bound {
	bounds := make([]Bound, n)
	for i := range bounds {
		bounds[i] = Bound{Lower: 0, Upper: 1}
	}
	return bounds
}

// Allocator solves for maximum-Sharpe portfolio weights. The zero-cost
// constructor wires the default Nelder-Mead backend and a silent logger.
type Allocator struct {
	min Minimizer
	log zerolog.Logger
}

func NewAllocator() *Allocator {
	return &Allocator{min: NewNelderMead(), log: zerolog.Nop()}
}

func NewAllocatorWith(min Minimizer, log zerolog.Logger) *Allocator {
	return &Allocator{min: min, log: log}
}

// MaxSharpeWeights is the package-level convenience wrapper around a default
// Allocator.
func MaxSharpeWeights(returns domain.ReturnsTable, rf float64, bounds []Bound, periodsPerYear int) ([]float64, error) {
	return NewAllocator().MaxSharpeWeights(returns, rf, bounds, periodsPerYear)
}

// MaxSharpeWeights maximizes the annualized Sharpe ratio
//
//	(w'mu*P - rf*P) / sqrt(P * w'Sigma*w)
//
// over weight vectors w with sum(w)=1 and bounds[i].Lower <= w_i <=
// bounds[i].Upper, starting from equal weights. rf is the per-period
// risk-free rate. Infeasible bounds and indefinite covariance are rejected
// before the solver runs; solver failure or a non-finite result is an
// OptimizationError, never a NaN weight vector.
func (a *Allocator) MaxSharpeWeights(returns domain.ReturnsTable, rf float64, bounds []Bound, periodsPerYear int) ([]float64, error) {
	n := returns.NumAssets()
	if n == 0 {
		return nil, domain.DataFormatErrf("returns table has no assets")
	}
	if returns.NumRows() < 2 {
		return nil, domain.DataFormatErrf("need at least 2 return rows to estimate covariance, got %d", returns.NumRows())
	}
	if periodsPerYear <= 0 {
		periodsPerYear = metrics.DefaultPeriodsPerYear
	}
	if bounds == nil {
		bounds = DefaultBounds(n)
	}
	if err := checkFeasible(bounds, n); err != nil {
		return nil, err
	}

	mu, sigma := sampleMoments(returns)
	if err := checkPSD(sigma); err != nil {
		return nil, err
	}

	scale := float64(periodsPerYear)
	rfAnnual := rf * scale
	objective := func(x []float64) float64 {
		w := projectToBounds(x, bounds)
		ret := 0.0
		for i := 0; i < n; i++ {
			ret += mu[i] * w[i]
		}
		variance := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				variance += w[i] * w[j] * sigma.At(i, j)
			}
		}
		if variance <= 0 || math.IsNaN(variance) {
			return math.MaxFloat64
		}
		sharpe := (ret*scale - rfAnnual) / math.Sqrt(scale*variance)

		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return -sharpe + sumPenalty*(sum-1)*(sum-1)
	}

	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = 1.0 / float64(n)
	}
	a.log.Debug().Int("assets", n).Float64("rfAnnual", rfAnnual).Msg("solving max-sharpe weights")

	solution, err := a.min.Minimize(objective, x0)
	if err != nil {
		return nil, err
	}

	weights, err := normalizeWithinBounds(projectToBounds(solution, bounds), bounds)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Floats64("weights", weights).Msg("max-sharpe solution")
	return weights, nil
}

// checkFeasible rejects bound sets that cannot hold a fully invested
// portfolio. This runs before any solver iteration so an impossible request
// never shows up as mysterious non-convergence. Every malformed or
// infeasible constraint set is an OptimizationError; DataFormatError is
// reserved for the returns data itself.
func checkFeasible(bounds []Bound, n int) error {
	if len(bounds) != n {
		return domain.OptimizationErrf("got %d bounds for %d assets", len(bounds), n)
	}
	sumLower, sumUpper := 0.0, 0.0
	for i, b := range bounds {
		if b.Lower > b.Upper {
			return domain.OptimizationErrf("bound %d has lower %v above upper %v", i, b.Lower, b.Upper)
		}
		sumLower += b.Lower
		sumUpper += b.Upper
	}
	if sumUpper < 1-metrics.WeightSumTolerance {
		return domain.OptimizationErrf("infeasible bounds: upper bounds sum to %v, cannot reach full investment", sumUpper)
	}
	if sumLower > 1+metrics.WeightSumTolerance {
		return domain.OptimizationErrf("infeasible bounds: lower bounds sum to %v, cannot stay fully invested", sumLower)
	}
	return nil
}

// sampleMoments estimates the mean return vector and sample covariance
// matrix from the returns table.
func sampleMoments(returns domain.ReturnsTable) ([]float64, *mat.SymDense) {
	n := returns.NumAssets()
	rows := returns.NumRows()
	data := mat.NewDense(rows, n, nil)
	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		series := returns.Series(j)
		for i, r := range series {
			data.Set(i, j, r)
		}
		mu[j] = stat.Mean(series, nil)
	}
	sigma := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(sigma, data, nil)
	return mu, sigma
}

// checkPSD validates the covariance matrix is positive semi-definite within
// tolerance. A singular matrix passes (the quadratic form stays
// well-defined); an indefinite one cannot come from real return data and is
// rejected.
func checkPSD(sigma *mat.SymDense) error {
	var eig mat.EigenSym
	if !eig.Factorize(sigma, false) {
		return domain.OptimizationErrf("covariance eigendecomposition failed")
	}
	values := eig.Values(nil)
	largest := 0.0
	for _, v := range values {
		if v > largest {
			largest = v
		}
	}
	floor := -psdTolerance * math.Max(largest, 1)
	for _, v := range values {
		if v < floor {
			return domain.OptimizationErrf("covariance matrix is not positive semi-definite (eigenvalue %v)", v)
		}
	}
	return nil
}

func projectToBounds(x []float64, bounds []Bound) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, bounds[i].Lower), bounds[i].Upper)
	}
	return out
}

// normalizeWithinBounds nudges a bounded weight vector back onto the
// full-investment plane by spreading the residual across whatever slack
// remains, then verifies the result. The residual is solver noise of the
// penalty method, so a feasible problem always has room for it.
func normalizeWithinBounds(weights []float64, bounds []Bound) ([]float64, error) {
	out := append([]float64{}, weights...)
	for iter := 0; iter < 32; iter++ {
		sum := 0.0
		for _, w := range out {
			sum += w
		}
		residual := 1 - sum
		if math.Abs(residual) <= metrics.WeightSumTolerance {
			return out, nil
		}
		slack := 0.0
		for i, w := range out {
			if residual > 0 {
				slack += bounds[i].Upper - w
			} else {
				slack += w - bounds[i].Lower
			}
		}
		if slack <= 0 {
			break
		}
		for i := range out {
			var room float64
			if residual > 0 {
				room = bounds[i].Upper - out[i]
			} else {
				room = out[i] - bounds[i].Lower
			}
			out[i] += residual * room / slack
		}
	}
	return nil, domain.OptimizationErrf("could not normalize weights to full investment within bounds")
}
