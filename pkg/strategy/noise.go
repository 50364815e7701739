package strategy

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/risk"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// exits are the protective distances attached to every entry, zero disables one.
type exits struct {
	stopLoss     fixed.Point
	takeProfit   fixed.Point
	trailingStop fixed.Point
}

func exitsOf(rec Record, sl, tp float64) exits {
	return exits{
		stopLoss:     fixed.FromFloat64(rec.Param("sl", sl)),
		takeProfit:   fixed.FromFloat64(rec.Param("tp", tp)),
		trailingStop: fixed.FromFloat64(rec.Param("trailing", 0)),
	}
}

func (e exits) apply(p common.OrderParams) common.OrderParams {
	if e.stopLoss.IsPos() {
		p = p.WithStopLoss(e.stopLoss)
	}
	if e.takeProfit.IsPos() {
		p = p.WithTakeProfit(e.takeProfit)
	}
	if e.trailingStop.IsPos() {
		p = p.WithTrailingStop(e.trailingStop)
	}
	return p
}

// entry sizes a market order at the current price of the asset.
func entry(sizer *risk.Manager, v simulation.View, assetID string, e exits) (common.OrderParams, bool) {
	price, ok := v.Observation.Price(assetID)
	if !ok {
		return common.OrderParams{}, false
	}
	size := sizer.OrderSize(v.Account, v.Exog)
	if !size.IsPos() {
		return common.OrderParams{}, false
	}
	return e.apply(common.MarketParams(size, price)), true
}

// Noise enters at random with probability p per asset and tick, and leaves
// through its exits only.
type Noise struct {
	sizer  *risk.Manager
	rng    *rand.Rand
	assets []string
	p      float64
	exits  exits
}

func NewNoise(rec Record, sizer *risk.Manager) (simulation.Policy, error) {
	p := rec.Param("p", 0.01)
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: probability %g outside [0, 1]", ErrInvalidRecord, p)
	}
	return &Noise{
		sizer:  sizer,
		rng:    rand.New(rand.NewSource(rec.Seed)),
		assets: slices.Sorted(slices.Values(rec.Assets)),
		p:      p,
		exits:  exitsOf(rec, 0.001, 0.001),
	}, nil
}

func (n *Noise) LongOpen(v simulation.View) map[string]common.OrderParams {
	return n.open(v)
}

func (n *Noise) ShortOpen(v simulation.View) map[string]common.OrderParams {
	return n.open(v)
}

func (n *Noise) LongClose(*order.Order, simulation.View) bool  { return false }
func (n *Noise) ShortClose(*order.Order, simulation.View) bool { return false }

func (n *Noise) open(v simulation.View) map[string]common.OrderParams {
	out := make(map[string]common.OrderParams)
	for _, assetID := range n.assets {
		if n.rng.Float64() >= n.p {
			continue
		}
		if params, ok := entry(n.sizer, v, assetID, n.exits); ok {
			out[assetID] = params
		}
	}
	return out
}
