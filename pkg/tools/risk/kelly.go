package risk

import (
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// Kelly sizes by the Kelly fraction of the last N closed trades, scaled by
// Scale. Until N trades have closed it proposes DefaultLots.
type Kelly struct {
	N           int
	DefaultLots fixed.Point
	Scale       fixed.Point
}

func (k Kelly) OrderSize(acc Account, _ common.Exog) fixed.Point {
	if k.N <= 0 {
		return k.DefaultLots
	}
	trades := closedTrades(acc, k.N)
	if len(trades) < k.N {
		return k.DefaultLots
	}

	var (
		wins, losses        int
		totalWin, totalLoss = fixed.Zero, fixed.Zero
	)
	for _, o := range trades {
		if profit := o.RealizedProfit(); profit.IsPos() {
			wins++
			totalWin = totalWin.Add(profit)
		} else {
			losses++
			totalLoss = totalLoss.Add(profit.Neg())
		}
	}

	return kellyFraction(wins, losses, totalWin, totalLoss).Mul(k.Scale)
}

// kellyFraction computes f = p - q/b where b is the average win over the
// average loss. Non-positive edges return zero.
func kellyFraction(wins, losses int, totalWin, totalLoss fixed.Point) fixed.Point {
	total := wins + losses
	if total == 0 || wins == 0 {
		return fixed.Zero
	}

	p := fixed.FromInt(wins, 0).DivInt(total)
	if losses == 0 || totalLoss.IsZero() {
		return p
	}

	q := fixed.One.Sub(p)
	b := totalWin.DivInt(wins).Div(totalLoss.DivInt(losses))

	f := p.Sub(q.Div(b))
	if !f.IsPos() {
		return fixed.Zero
	}
	return f
}
