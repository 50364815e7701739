package common

import (
	"time"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

type Asset struct {
	ID       string      `json:"id"`
	LotUnits fixed.Point `json:"lot_units"`
}

type Tick struct {
	TimeStamp  time.Time   `json:"ts"`
	Price      fixed.Point `json:"price"`
	Spread     fixed.Point `json:"spread"`
	Commission fixed.Point `json:"commission"`
	Slippage   fixed.Point `json:"slippage"`
	Settlement fixed.Point `json:"settlement"`
}

// Observation is one synchronized tick across every asset of a feed.
type Observation struct {
	Index     int
	TimeStamp time.Time
	Ticks     map[string]Tick
}

func (o Observation) Tick(assetID string) (Tick, bool) {
	t, ok := o.Ticks[assetID]
	return t, ok
}

func (o Observation) Price(assetID string) (fixed.Point, bool) {
	t, ok := o.Ticks[assetID]
	return t.Price, ok
}

// Exog is a row of exogenous values aligned with one observation.
type Exog []fixed.Point
