package allocate

import (
	"math"

	"stockkit/internal/domain"

	"gonum.org/v1/gonum/optimize"
)

// Minimizer finds a local minimum of f starting from x0. The numerical
// library behind it is an implementation detail; callers only depend on
// "minimize or fail".
type Minimizer interface {
	Minimize(f func(x []float64) float64, x0 []float64) ([]float64, error)
}

// nelderMead is the default backend: gradient-free simplex search, which
// tolerates the flat regions the bound projection introduces.
type nelderMead struct {
	settings *optimize.Settings
}

// NewNelderMead returns the default Minimizer with a convergence tolerance
// tight enough for weight vectors quoted to six decimal places.
func NewNelderMead() Minimizer {
	return &nelderMead{
		settings: &optimize.Settings{
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-12,
				Relative:   1e-12,
				Iterations: 100,
			},
			MajorIterations: 20000,
		},
	}
}

func (n *nelderMead) Minimize(f func(x []float64) float64, x0 []float64) ([]float64, error) {
	problem := optimize.Problem{Func: f}
	result, err := optimize.Minimize(problem, x0, n.settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &domain.OptimizationError{Msg: "minimization failed", Err: err}
	}
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.MethodConverge:
	default:
		return nil, domain.OptimizationErrf("minimizer stopped without converging: %s", result.Status)
	}
	for _, x := range result.X {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, domain.OptimizationErrf("minimizer produced a non-finite solution")
		}
	}
	return result.X, nil
}
