package datasource

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var ErrPriceTimeMismatch = errors.New("prices and timestamps differ in length")

// Preset carries the contract terms shared by every tick of an asset class.
type Preset struct {
	LotUnits   fixed.Point
	Spread     fixed.Point
	Commission fixed.Point
	Slippage   fixed.Point
}

var (
	FXPair = Preset{
		LotUnits:   fixed.Thousand,
		Spread:     fixed.MustParse("0.0001"),
		Commission: fixed.Zero,
		Slippage:   fixed.Zero,
	}
	Stock = Preset{
		LotUnits:   fixed.One,
		Spread:     fixed.Zero,
		Commission: fixed.Zero,
		Slippage:   fixed.Zero,
	}
)

func (p Preset) Asset(id string) common.Asset {
	return common.Asset{ID: id, LotUnits: p.LotUnits}
}

func (p Preset) Tick(ts time.Time, price fixed.Point) common.Tick {
	return common.Tick{
		TimeStamp:  ts,
		Price:      price,
		Spread:     p.Spread,
		Commission: p.Commission,
		Slippage:   p.Slippage,
		Settlement: price,
	}
}

// Series pairs timestamps and prices into ticks carrying the preset costs.
func (p Preset) Series(id string, times []time.Time, prices []fixed.Point) (Series, error) {
	if len(times) != len(prices) {
		return Series{}, fmt.Errorf("asset %q: %d timestamps, %d prices: %w", id, len(times), len(prices), ErrPriceTimeMismatch)
	}

	ticks := make([]common.Tick, len(prices))
	for i := range prices {
		ticks[i] = p.Tick(times[i], prices[i])
	}
	return Series{Asset: p.Asset(id), Ticks: ticks}, nil
}
