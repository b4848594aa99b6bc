package prices

import (
	"fmt"
	"math"

	"stockkit/internal/domain"
)

// Method selects the return definition.
type Method string

const (
	// Simple computes r_t = p_t/p_{t-1} - 1.
	Simple Method = "simple"
	// Log computes r_t = ln(p_t/p_{t-1}).
	Log Method = "log"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case Simple, Log:
		return Method(s), nil
	}
	return "", fmt.Errorf("method must be %q or %q, got %q", Simple, Log, s)
}

// ToReturns derives the periodic return table from a price table. The
// result has one fewer row than the input and the same column set. The log
// method rejects non-positive prices; the simple method propagates whatever
// the arithmetic yields.
func ToReturns(table domain.PriceTable, method Method) (domain.ReturnsTable, error) {
	if method != Simple && method != Log {
		return domain.ReturnsTable{}, fmt.Errorf("unknown return method %q", method)
	}
	if err := table.Validate(); err != nil {
		return domain.ReturnsTable{}, err
	}

	out := domain.ReturnsTable{
		Assets: append([]string{}, table.Assets...),
	}
	for i := 1; i < table.NumRows(); i++ {
		row := make([]float64, table.NumAssets())
		for j := 0; j < table.NumAssets(); j++ {
			prev := table.Prices[i-1][j]
			cur := table.Prices[i][j]
			switch method {
			case Simple:
				if prev.IsZero() {
					return domain.ReturnsTable{}, domain.DataFormatErrf(
						"zero %s price on row %d, simple return undefined", table.Assets[j], i)
				}
				row[j] = cur.Sub(prev).Div(prev).InexactFloat64()
			case Log:
				if prev.Sign() <= 0 || cur.Sign() <= 0 {
					return domain.ReturnsTable{}, domain.DataFormatErrf(
						"non-positive %s price on rows %d-%d, log return undefined", table.Assets[j], i, i+1)
				}
				row[j] = math.Log(cur.InexactFloat64() / prev.InexactFloat64())
			}
		}
		out.Dates = append(out.Dates, table.Dates[i])
		out.Values = append(out.Values, row)
	}
	return out, nil
}
