package risk

import (
	"math/rand"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

type ConstantLots struct {
	Lots fixed.Point
}

func (c ConstantLots) OrderSize(Account, common.Exog) fixed.Point {
	return c.Lots
}

// ConstantRate sizes as a fixed fraction of the chosen ledger quantity.
type ConstantRate struct {
	Rate fixed.Point
	On   Basis
}

func (c ConstantRate) OrderSize(acc Account, _ common.Exog) fixed.Point {
	return c.Rate.Mul(c.On.value(acc))
}

// AccountVariance sizes inversely to the variance of the last N ledger points.
// Until N trades have closed it proposes DefaultLots.
type AccountVariance struct {
	N           int
	On          Basis
	DefaultLots fixed.Point
	Multiplier  fixed.Point
}

func (v AccountVariance) OrderSize(acc Account, _ common.Exog) fixed.Point {
	if v.N <= 0 || len(closedTrades(acc, v.N)) < v.N {
		return v.DefaultLots
	}

	series := v.On.series(acc.History())
	if len(series) > v.N {
		series = series[len(series)-v.N:]
	}

	variance := fixed.Variance(series, fixed.Mean(series))
	if variance.IsZero() {
		return v.DefaultLots
	}
	return v.Multiplier.Div(variance)
}

// RandomUniform draws from [0, balance/1000).
type RandomUniform struct {
	rng *rand.Rand
}

func NewRandomUniform(seed int64) *RandomUniform {
	return &RandomUniform{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomUniform) OrderSize(acc Account, _ common.Exog) fixed.Point {
	return fixed.FromFloat64(r.rng.Float64()).Mul(acc.Balance().Div(fixed.Thousand))
}
