package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTable is a wide table of closing prices: one row per trading date,
// one column per asset. Rows are ordered by strictly increasing date.
type PriceTable struct {
	Dates  []time.Time
	Assets []string
	// Prices[i][j] is the price of Assets[j] on Dates[i]
	Prices [][]decimal.Decimal
}

func (t PriceTable) NumRows() int { return len(t.Dates) }

func (t PriceTable) NumAssets() int { return len(t.Assets) }

// Column returns the price series for a single asset, or false if the
// asset is not in the table.
func (t PriceTable) Column(asset string) ([]decimal.Decimal, bool) {
	for j, a := range t.Assets {
		if a != asset {
			continue
		}
		out := make([]decimal.Decimal, len(t.Prices))
		for i := range t.Prices {
			out[i] = t.Prices[i][j]
		}
		return out, true
	}
	return nil, false
}

// Validate checks the structural invariants: at least two rows, strictly
// increasing dates, and a consistent column count on every row.
func (t PriceTable) Validate() error {
	if t.NumRows() < 2 {
		return DataFormatErrf("price table needs at least 2 rows, has %d", t.NumRows())
	}
	for i, row := range t.Prices {
		if len(row) != t.NumAssets() {
			return DataFormatErrf("price row %d has %d cells, expected %d", i, len(row), t.NumAssets())
		}
	}
	for i := 1; i < len(t.Dates); i++ {
		if !t.Dates[i].After(t.Dates[i-1]) {
			return DataFormatErrf("dates not strictly increasing at row %d (%s >= %s)",
				i, t.Dates[i-1].Format("2006-01-02"), t.Dates[i].Format("2006-01-02"))
		}
	}
	return nil
}

// ReturnsTable holds periodic returns derived from a PriceTable. It has one
// fewer row than its source; Dates[i] is the later date of each price pair.
type ReturnsTable struct {
	Dates  []time.Time
	Assets []string
	Values [][]float64
}

func (t ReturnsTable) NumRows() int { return len(t.Values) }

func (t ReturnsTable) NumAssets() int { return len(t.Assets) }

// Series returns the return series of the j-th asset.
func (t ReturnsTable) Series(j int) []float64 {
	out := make([]float64, len(t.Values))
	for i := range t.Values {
		out[i] = t.Values[i][j]
	}
	return out
}

// Weighted collapses the table into a single portfolio return series,
// r_t = sum_j w_j * r_{t,j}. Weights must align with Assets.
func (t ReturnsTable) Weighted(weights []float64) ([]float64, error) {
	if len(weights) != t.NumAssets() {
		return nil, DataFormatErrf("got %d weights for %d assets", len(weights), t.NumAssets())
	}
	out := make([]float64, len(t.Values))
	for i, row := range t.Values {
		for j, r := range row {
			out[i] += weights[j] * r
		}
	}
	return out, nil
}

// StatsRecord is the fixed set of risk/return scalars computed for a
// portfolio (or a single asset) over a return series. Undefined ratios
// (zero volatility, no downside periods) are NaN, never silently zero.
type StatsRecord struct {
	AnnReturn   float64 `json:"annReturn"`
	AnnVol      float64 `json:"annVol"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	MaxDrawdown float64 `json:"maxDrawdown"`
	CVaR        float64 `json:"cvar"`
	CAGR        float64 `json:"cagr"`
}
