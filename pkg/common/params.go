package common

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// OrderParams is what a strategy returns for every asset it wants to open on.
type OrderParams struct {
	Mode   Mode
	Size   fixed.Point
	Strike fixed.Point

	StopLoss     optional.Option[fixed.Point]
	TakeProfit   optional.Option[fixed.Point]
	TrailingStop optional.Option[fixed.Point]
	Expiration   optional.Option[time.Time]
}

func MarketParams(size, strike fixed.Point) OrderParams {
	return OrderParams{Mode: ModeMarket, Size: size, Strike: strike}
}

func PendingParams(size, strike fixed.Point) OrderParams {
	return OrderParams{Mode: ModePending, Size: size, Strike: strike}
}

func (p OrderParams) WithStopLoss(distance fixed.Point) OrderParams {
	p.StopLoss = optional.Some(distance)
	return p
}

func (p OrderParams) WithTakeProfit(distance fixed.Point) OrderParams {
	p.TakeProfit = optional.Some(distance)
	return p
}

func (p OrderParams) WithTrailingStop(distance fixed.Point) OrderParams {
	p.TrailingStop = optional.Some(distance)
	return p
}

func (p OrderParams) WithExpiration(t time.Time) OrderParams {
	p.Expiration = optional.Some(t)
	return p
}
