package strategy

import (
	"fmt"
	"slices"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/indicators"
	"github.com/peter-kozarec/strategytester/pkg/tools/risk"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// Reversion fades z-score extremes. It buys when the price sits threshold
// deviations below its rolling mean, sells at the opposite extreme and exits
// once the price is back at the mean.
type Reversion struct {
	id        string
	sizer     *risk.Manager
	assets    []string
	threshold fixed.Point
	exits     exits
	scores    map[string]*indicators.ZScore
	values    map[string]fixed.Point
	lastIndex int
}

func NewReversion(rec Record, sizer *risk.Manager) (simulation.Policy, error) {
	window := int(rec.Param("window", 20))
	threshold := rec.Param("threshold", 2)
	if window < 2 || threshold <= 0 {
		return nil, fmt.Errorf("%w: z-score window %d, threshold %g", ErrInvalidRecord, window, threshold)
	}

	r := &Reversion{
		id:        rec.ID,
		sizer:     sizer,
		assets:    slices.Sorted(slices.Values(rec.Assets)),
		threshold: fixed.FromFloat64(threshold),
		exits:     exitsOf(rec, 0, 0),
		scores:    make(map[string]*indicators.ZScore, len(rec.Assets)),
		values:    make(map[string]fixed.Point, len(rec.Assets)),
		lastIndex: -1,
	}
	for _, assetID := range r.assets {
		r.scores[assetID] = indicators.NewZScore(window)
	}
	return r, nil
}

func (r *Reversion) LongOpen(v simulation.View) map[string]common.OrderParams {
	return r.open(v, common.Long)
}

func (r *Reversion) ShortOpen(v simulation.View) map[string]common.OrderParams {
	return r.open(v, common.Short)
}

func (r *Reversion) LongClose(o *order.Order, v simulation.View) bool {
	z, ok := r.score(v, o.AssetID())
	return ok && !z.IsNeg()
}

func (r *Reversion) ShortClose(o *order.Order, v simulation.View) bool {
	z, ok := r.score(v, o.AssetID())
	return ok && !z.IsPos()
}

func (r *Reversion) open(v simulation.View, direction common.Direction) map[string]common.OrderParams {
	out := make(map[string]common.OrderParams)
	for _, assetID := range r.assets {
		z, ok := r.score(v, assetID)
		if !ok {
			continue
		}
		if direction == common.Long && z.Gt(r.threshold.Neg()) {
			continue
		}
		if direction == common.Short && z.Lt(r.threshold) {
			continue
		}
		if holds(v, r.id, assetID, direction) {
			continue
		}
		if params, ok := entry(r.sizer, v, assetID, r.exits); ok {
			out[assetID] = params
		}
	}
	return out
}

func (r *Reversion) score(v simulation.View, assetID string) (fixed.Point, bool) {
	r.observe(v)
	z, ok := r.values[assetID]
	return z, ok
}

func (r *Reversion) observe(v simulation.View) {
	if v.Observation.Index == r.lastIndex {
		return
	}
	r.lastIndex = v.Observation.Index

	for assetID, z := range r.scores {
		delete(r.values, assetID)
		price, ok := v.Observation.Price(assetID)
		if !ok {
			continue
		}
		z.AddPoint(price)
		if z.IsReady() {
			r.values[assetID] = z.Value()
		}
	}
}
