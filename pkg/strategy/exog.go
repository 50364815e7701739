package strategy

import (
	"fmt"
	"slices"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/risk"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// Exog follows the sign of one exogenous column. It holds at most one order per
// asset and direction and closes it when the sign flips.
type Exog struct {
	id     string
	sizer  *risk.Manager
	assets []string
	column int
	exits  exits
}

func NewExog(rec Record, sizer *risk.Manager) (simulation.Policy, error) {
	column := int(rec.Param("column", 0))
	if column < 0 {
		return nil, fmt.Errorf("%w: exogenous column %d", ErrInvalidRecord, column)
	}
	return &Exog{
		id:     rec.ID,
		sizer:  sizer,
		assets: slices.Sorted(slices.Values(rec.Assets)),
		column: column,
		exits:  exitsOf(rec, 0, 0),
	}, nil
}

func (e *Exog) LongOpen(v simulation.View) map[string]common.OrderParams {
	return e.open(v, common.Long)
}

func (e *Exog) ShortOpen(v simulation.View) map[string]common.OrderParams {
	return e.open(v, common.Short)
}

func (e *Exog) LongClose(_ *order.Order, v simulation.View) bool {
	value, ok := e.value(v)
	return ok && value.IsNeg()
}

func (e *Exog) ShortClose(_ *order.Order, v simulation.View) bool {
	value, ok := e.value(v)
	return ok && value.IsPos()
}

func (e *Exog) open(v simulation.View, direction common.Direction) map[string]common.OrderParams {
	out := make(map[string]common.OrderParams)

	value, ok := e.value(v)
	if !ok {
		return out
	}
	if (direction == common.Long && !value.IsPos()) || (direction == common.Short && !value.IsNeg()) {
		return out
	}

	for _, assetID := range e.assets {
		if holds(v, e.id, assetID, direction) {
			continue
		}
		if params, ok := entry(e.sizer, v, assetID, e.exits); ok {
			out[assetID] = params
		}
	}
	return out
}

func (e *Exog) value(v simulation.View) (fixed.Point, bool) {
	if e.column >= len(v.Exog) {
		return fixed.Zero, false
	}
	return v.Exog[e.column], true
}

// holds reports whether the strategy already has an active order on the asset
// in that direction.
func holds(v simulation.View, strategyID, assetID string, direction common.Direction) bool {
	for _, o := range v.Account.ActiveOrders() {
		if o.StrategyID() == strategyID && o.AssetID() == assetID && o.Direction() == direction {
			return true
		}
	}
	return false
}
