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

type crossing int8

const (
	noCross crossing = 0
	crossUp crossing = 1
	crossDn crossing = -1
)

type averages struct {
	fast     *fixed.Window
	slow     *fixed.Window
	lastDiff fixed.Point
	hasDiff  bool
	signal   crossing
}

// MACross trades crossings of a fast and a slow simple moving average. A cross
// up opens a long and closes shorts, a cross down does the opposite.
type MACross struct {
	sizer     *risk.Manager
	assets    []string
	exits     exits
	series    map[string]*averages
	lastIndex int
}

func NewMACross(rec Record, sizer *risk.Manager) (simulation.Policy, error) {
	fast := int(rec.Param("fast", 10))
	slow := int(rec.Param("slow", 30))
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("%w: moving average periods fast %d, slow %d", ErrInvalidRecord, fast, slow)
	}

	m := &MACross{
		sizer:     sizer,
		assets:    slices.Sorted(slices.Values(rec.Assets)),
		exits:     exitsOf(rec, 0, 0),
		series:    make(map[string]*averages, len(rec.Assets)),
		lastIndex: -1,
	}
	for _, assetID := range m.assets {
		m.series[assetID] = &averages{fast: fixed.NewWindow(fast), slow: fixed.NewWindow(slow)}
	}
	return m, nil
}

func (m *MACross) LongOpen(v simulation.View) map[string]common.OrderParams {
	return m.open(v, crossUp)
}

func (m *MACross) ShortOpen(v simulation.View) map[string]common.OrderParams {
	return m.open(v, crossDn)
}

func (m *MACross) LongClose(o *order.Order, v simulation.View) bool {
	return m.signal(v, o.AssetID()) == crossDn
}

func (m *MACross) ShortClose(o *order.Order, v simulation.View) bool {
	return m.signal(v, o.AssetID()) == crossUp
}

func (m *MACross) open(v simulation.View, want crossing) map[string]common.OrderParams {
	out := make(map[string]common.OrderParams)
	for _, assetID := range m.assets {
		if m.signal(v, assetID) != want {
			continue
		}
		if params, ok := entry(m.sizer, v, assetID, m.exits); ok {
			out[assetID] = params
		}
	}
	return out
}

func (m *MACross) signal(v simulation.View, assetID string) crossing {
	m.observe(v)
	if a, ok := m.series[assetID]; ok {
		return a.signal
	}
	return noCross
}

// observe folds the observation into the averages once per tick, whichever
// hook the engine calls first.
func (m *MACross) observe(v simulation.View) {
	if v.Observation.Index == m.lastIndex {
		return
	}
	m.lastIndex = v.Observation.Index

	for assetID, a := range m.series {
		a.signal = noCross

		price, ok := v.Observation.Price(assetID)
		if !ok {
			continue
		}
		a.fast.Push(price)
		a.slow.Push(price)
		if !a.slow.Full() {
			continue
		}

		diff := a.fast.Mean().Sub(a.slow.Mean())
		if a.hasDiff {
			switch {
			case !a.lastDiff.IsPos() && diff.IsPos():
				a.signal = crossUp
			case !a.lastDiff.IsNeg() && diff.IsNeg():
				a.signal = crossDn
			}
		}
		a.lastDiff = diff
		a.hasDiff = true
	}
}
