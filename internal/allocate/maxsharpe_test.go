package allocate

import (
	"math/rand"
	"testing"
	"time"

	"stockkit/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func syntheticReturns(t *testing.T, assets int, rows int, seed int64) domain.ReturnsTable {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	table := domain.ReturnsTable{}
	for j := 0; j < assets; j++ {
		table.Assets = append(table.Assets, string(rune('A'+j)))
	}
	day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		row := make([]float64, assets)
		for j := range row {
			row[j] = 0.002 + 0.001*float64(j) + 0.01*rng.NormFloat64()
		}
		table.Dates = append(table.Dates, day.AddDate(0, 0, i))
		table.Values = append(table.Values, row)
	}
	return table
}

type recordingMinimizer struct {
	called bool
}

func (m *recordingMinimizer) Minimize(f func(x []float64) float64, x0 []float64) ([]float64, error) {
	m.called = true
	return x0, nil
}

func TestMaxSharpeWeights(t *testing.T) {
	t.Run("weights within default bounds summing to one", func(t *testing.T) {
		returns := syntheticReturns(t, 4, 252, 7)
		weights, err := MaxSharpeWeights(returns, 0.02/252, nil, 252)
		require.NoError(t, err)
		require.Len(t, weights, 4)

		sum := 0.0
		for _, w := range weights {
			require.GreaterOrEqual(t, w, 0.0)
			require.LessOrEqual(t, w, 1.0)
			sum += w
		}
		require.InDelta(t, 1.0, sum, 1e-6)
	})

	t.Run("concentrates on a dominant asset", func(t *testing.T) {
		// A earns, B is pure noise with the same volatility; the tangency
		// portfolio is all A and the (0,1) bound pins B at zero.
		rng := rand.New(rand.NewSource(11))
		table := domain.ReturnsTable{Assets: []string{"A", "B"}}
		day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 500; i++ {
			table.Dates = append(table.Dates, day.AddDate(0, 0, i))
			table.Values = append(table.Values, []float64{
				0.004 + 0.002*rng.NormFloat64(),
				0.0 + 0.002*rng.NormFloat64(),
			})
		}
		weights, err := MaxSharpeWeights(table, 0, nil, 252)
		require.NoError(t, err)
		require.InDelta(t, 1.0, weights[0], 5e-2)
		require.InDelta(t, 0.0, weights[1], 5e-2)
	})

	t.Run("respects tighter bounds", func(t *testing.T) {
		returns := syntheticReturns(t, 3, 252, 3)
		bounds := []Bound{{0.1, 0.5}, {0.1, 0.5}, {0.1, 0.5}}
		weights, err := MaxSharpeWeights(returns, 0, bounds, 252)
		require.NoError(t, err)

		sum := 0.0
		for i, w := range weights {
			require.GreaterOrEqual(t, w, bounds[i].Lower-1e-9)
			require.LessOrEqual(t, w, bounds[i].Upper+1e-9)
			sum += w
		}
		require.InDelta(t, 1.0, sum, 1e-6)
	})

	t.Run("infeasible upper bounds fail before the solver runs", func(t *testing.T) {
		returns := syntheticReturns(t, 2, 60, 5)
		stub := &recordingMinimizer{}
		a := NewAllocatorWith(stub, zerolog.Nop())

		_, err := a.MaxSharpeWeights(returns, 0, []Bound{{0, 0.3}, {0, 0.3}}, 252)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
		require.False(t, stub.called)
	})

	t.Run("infeasible lower bounds fail before the solver runs", func(t *testing.T) {
		returns := syntheticReturns(t, 2, 60, 5)
		stub := &recordingMinimizer{}
		a := NewAllocatorWith(stub, zerolog.Nop())

		_, err := a.MaxSharpeWeights(returns, 0, []Bound{{0.7, 1}, {0.6, 1}}, 252)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
		require.False(t, stub.called)
	})

	t.Run("inverted bound rejected", func(t *testing.T) {
		returns := syntheticReturns(t, 2, 60, 5)
		_, err := MaxSharpeWeights(returns, 0, []Bound{{0.8, 0.2}, {0, 1}}, 252)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
	})

	t.Run("bound count must match assets", func(t *testing.T) {
		returns := syntheticReturns(t, 3, 60, 5)
		_, err := MaxSharpeWeights(returns, 0, []Bound{{0, 1}}, 252)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
	})

	t.Run("too few rows for covariance", func(t *testing.T) {
		table := domain.ReturnsTable{
			Assets: []string{"A"},
			Dates:  []time.Time{time.Now()},
			Values: [][]float64{{0.01}},
		}
		_, err := MaxSharpeWeights(table, 0, nil, 252)
		var dfe *domain.DataFormatError
		require.ErrorAs(t, err, &dfe)
	})
}

func TestCheckPSD(t *testing.T) {
	t.Run("accepts a singular matrix", func(t *testing.T) {
		// rank 1: duplicated asset
		sigma := mat.NewSymDense(2, []float64{1, 1, 1, 1})
		require.NoError(t, checkPSD(sigma))
	})

	t.Run("rejects an indefinite matrix", func(t *testing.T) {
		sigma := mat.NewSymDense(2, []float64{1, 2, 2, 1})
		err := checkPSD(sigma)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
	})
}

func TestNormalizeWithinBounds(t *testing.T) {
	t.Run("spreads residual over slack", func(t *testing.T) {
		bounds := []Bound{{0, 1}, {0, 1}}
		out, err := normalizeWithinBounds([]float64{0.4, 0.4}, bounds)
		require.NoError(t, err)
		require.InDelta(t, 1.0, out[0]+out[1], 1e-9)
		for i, w := range out {
			require.GreaterOrEqual(t, w, bounds[i].Lower)
			require.LessOrEqual(t, w, bounds[i].Upper)
		}
	})

	t.Run("fails when no slack remains", func(t *testing.T) {
		bounds := []Bound{{0, 0.4}, {0, 0.4}}
		_, err := normalizeWithinBounds([]float64{0.4, 0.4}, bounds)
		var oe *domain.OptimizationError
		require.ErrorAs(t, err, &oe)
	})

	t.Run("no-op when already fully invested", func(t *testing.T) {
		out, err := normalizeWithinBounds([]float64{0.25, 0.75}, []Bound{{0, 1}, {0, 1}})
		require.NoError(t, err)
		require.InDelta(t, 0.25, out[0], 1e-12)
		require.InDelta(t, 0.75, out[1], 1e-12)
	})
}
