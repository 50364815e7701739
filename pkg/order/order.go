package order

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/moznion/go-optional"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	ErrInvalidMode      = errors.New("invalid order mode")
	ErrInvalidDirection = errors.New("invalid order direction")
	ErrInvalidSize      = errors.New("order size must be positive")
	ErrInvalidTerms     = errors.New("invalid order terms")
	ErrOrderTerminated  = errors.New("cannot update a terminated order")
	ErrAlreadyBound     = errors.New("order already has an id")
)

// now is swapped in tests, wall clock stamps are audit only.
var now = time.Now

type ID int64

type CloseReason string

const (
	ReasonNone       CloseReason = ""
	ReasonManual     CloseReason = "manual"
	ReasonExpired    CloseReason = "expired"
	ReasonTakeProfit CloseReason = "take-profit"
	ReasonStopLoss   CloseReason = "stop-loss"
	ReasonStopOut    CloseReason = "stop-out"
	ReasonTearDown   CloseReason = "tear-down"
)

// Terms are fixed when the order is created. Digits of 0 disables rounding.
type Terms struct {
	StrategyID   string
	StrategyName string
	AssetID      string

	LotUnits   fixed.Point
	Leverage   fixed.Point
	Spread     fixed.Point
	Commission fixed.Point
	Slippage   fixed.Point
	Digits     int

	StopLoss     optional.Option[fixed.Point]
	TakeProfit   optional.Option[fixed.Point]
	TrailingStop optional.Option[fixed.Point]
	Expiration   optional.Option[time.Time]
}

type Timestamps struct {
	Wall time.Time `json:"wall"`
	Tick time.Time `json:"tick"`
}

type Order struct {
	id           ID
	strategyID   string
	strategyName string
	assetID      string

	direction common.Direction
	mode      common.Mode
	size      fixed.Point
	strike    fixed.Point
	lotUnits  fixed.Point
	leverage  fixed.Point
	slippage  fixed.Point
	digits    int

	stopLoss     optional.Option[fixed.Point]
	takeProfit   optional.Option[fixed.Point]
	trailingStop optional.Option[fixed.Point]
	expiration   optional.Option[time.Time]

	entryCost fixed.Point
	pips      fixed.Point
	profit    fixed.Point
	margin    fixed.Point

	pipsHistory   []fixed.Point
	profitHistory []fixed.Point
	marginHistory []fixed.Point

	isActive    bool
	isOpen      bool
	wasOpened   bool
	activated   Timestamps
	opened      Timestamps
	closed      Timestamps
	closeReason CloseReason

	tags map[string]string
}

func New(direction common.Direction, mode common.Mode, size, strike fixed.Point, tickTime time.Time, terms Terms) (*Order, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}
	if !size.IsPos() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if terms.LotUnits.IsZero() {
		terms.LotUnits = fixed.One
	}
	if terms.Leverage.IsZero() {
		terms.Leverage = fixed.One
	}
	if terms.LotUnits.IsNeg() || terms.Leverage.IsNeg() || terms.Digits < 0 {
		return nil, fmt.Errorf("%w: lot units %s, leverage %s, digits %d",
			ErrInvalidTerms, terms.LotUnits, terms.Leverage, terms.Digits)
	}

	o := &Order{
		strategyID:   terms.StrategyID,
		strategyName: terms.StrategyName,
		assetID:      terms.AssetID,
		direction:    direction,
		mode:         mode,
		size:         size,
		strike:       strike,
		lotUnits:     terms.LotUnits,
		leverage:     terms.Leverage,
		slippage:     terms.Slippage,
		digits:       terms.Digits,
		stopLoss:     terms.StopLoss,
		takeProfit:   terms.TakeProfit,
		trailingStop: terms.TrailingStop,
		expiration:   terms.Expiration,
		isActive:     true,
		activated:    stamp(tickTime),
	}

	o.entryCost = o.round(terms.Spread.Add(terms.Commission).Mul(size).Neg())
	o.pips = fixed.Zero
	o.profit = o.entryCost
	o.margin = o.marginAt(strike)
	o.record()

	if mode == common.ModeMarket {
		o.isOpen = true
		o.wasOpened = true
		o.opened = o.activated
	}

	return o, nil
}

// Update is the per tick entry point. It returns whether the order is still active.
func (o *Order) Update(price fixed.Point, tickTime time.Time) (bool, error) {
	if !o.isActive {
		return false, fmt.Errorf("order %d: %w", o.id, ErrOrderTerminated)
	}

	if !o.isOpen {
		if o.expired(tickTime) {
			o.terminate(ReasonExpired, tickTime)
			return false, nil
		}
		// long opens once strike - price <= 0, short once strike - price >= 0
		if o.direction.Pips(price, o.strike).Gte(fixed.Zero) {
			o.isOpen = true
			o.wasOpened = true
			o.opened = stamp(tickTime)
		}
		return true, nil
	}

	o.revalue(price)

	switch {
	case o.expired(tickTime):
		o.terminate(ReasonExpired, tickTime)
	case o.takeProfit.IsSome() && o.pips.Gte(o.takeProfit.Unwrap()):
		o.terminate(ReasonTakeProfit, tickTime)
	case o.stopLoss.IsSome() && o.pips.Lte(o.stopLoss.Unwrap().Neg()):
		o.terminate(ReasonStopLoss, tickTime)
	default:
		o.trail()
	}

	return o.isActive, nil
}

// Close terminates the order. Closing an already terminated order does nothing.
func (o *Order) Close(tickTime time.Time) {
	o.Terminate(ReasonManual, tickTime)
}

func (o *Order) Terminate(reason CloseReason, tickTime time.Time) {
	if !o.isActive {
		return
	}
	o.terminate(reason, tickTime)
}

func (o *Order) terminate(reason CloseReason, tickTime time.Time) {
	o.isActive = false
	o.isOpen = false
	o.closeReason = reason
	o.closed = stamp(tickTime)
}

// Bind assigns the ledger id, it can only happen once.
func (o *Order) Bind(id ID) error {
	if o.id != 0 {
		return fmt.Errorf("order %d: %w", o.id, ErrAlreadyBound)
	}
	o.id = id
	return nil
}

func (o *Order) SetStopLoss(distance optional.Option[fixed.Point]) error {
	if !o.isActive {
		return fmt.Errorf("order %d: %w", o.id, ErrOrderTerminated)
	}
	o.stopLoss = distance
	return nil
}

func (o *Order) SetTakeProfit(distance optional.Option[fixed.Point]) error {
	if !o.isActive {
		return fmt.Errorf("order %d: %w", o.id, ErrOrderTerminated)
	}
	o.takeProfit = distance
	return nil
}

func (o *Order) SetTrailingStop(distance optional.Option[fixed.Point]) error {
	if !o.isActive {
		return fmt.Errorf("order %d: %w", o.id, ErrOrderTerminated)
	}
	o.trailingStop = distance
	return nil
}

func (o *Order) Annotate(key, value string) {
	if o.tags == nil {
		o.tags = make(map[string]string)
	}
	o.tags[key] = value
}

func (o *Order) Tag(key string) (string, bool) {
	v, ok := o.tags[key]
	return v, ok
}

func (o *Order) Tags() map[string]string {
	return maps.Clone(o.tags)
}

func (o *Order) Direction() common.Direction { return o.direction }

func (o *Order) ID() ID                   { return o.id }
func (o *Order) StrategyID() string       { return o.strategyID }
func (o *Order) StrategyName() string     { return o.strategyName }
func (o *Order) AssetID() string          { return o.assetID }
func (o *Order) Mode() common.Mode        { return o.mode }
func (o *Order) Size() fixed.Point        { return o.size }
func (o *Order) Strike() fixed.Point      { return o.strike }
func (o *Order) Leverage() fixed.Point    { return o.leverage }
func (o *Order) LotUnits() fixed.Point    { return o.lotUnits }
func (o *Order) EntryCost() fixed.Point   { return o.entryCost }
func (o *Order) Pips() fixed.Point        { return o.pips }
func (o *Order) Profit() fixed.Point      { return o.profit }
func (o *Order) Margin() fixed.Point      { return o.margin }
func (o *Order) IsActive() bool           { return o.isActive }
func (o *Order) IsOpen() bool             { return o.isOpen }
func (o *Order) WasOpened() bool          { return o.wasOpened }
func (o *Order) CloseReason() CloseReason { return o.closeReason }
func (o *Order) Activated() Timestamps    { return o.activated }
func (o *Order) Opened() Timestamps       { return o.opened }
func (o *Order) Closed() Timestamps       { return o.closed }

func (o *Order) StopLoss() optional.Option[fixed.Point]     { return o.stopLoss }
func (o *Order) TakeProfit() optional.Option[fixed.Point]   { return o.takeProfit }
func (o *Order) TrailingStop() optional.Option[fixed.Point] { return o.trailingStop }
func (o *Order) Expiration() optional.Option[time.Time]     { return o.expiration }

func (o *Order) PipsHistory() []fixed.Point   { return o.pipsHistory }
func (o *Order) ProfitHistory() []fixed.Point { return o.profitHistory }
func (o *Order) MarginHistory() []fixed.Point { return o.marginHistory }

// UnrealizedProfit is the profit of a live position, zero otherwise.
func (o *Order) UnrealizedProfit() fixed.Point {
	if o.isOpen {
		return o.profit
	}
	return fixed.Zero
}

// RealizedProfit is what closing the order folds into the balance. A pending
// order that never opened realizes nothing.
func (o *Order) RealizedProfit() fixed.Point {
	if o.WasOpened() {
		return o.profit
	}
	return fixed.Zero
}

func (o *Order) revalue(price fixed.Point) {
	o.pips = o.direction.Pips(price, o.strike)
	o.profit = o.round(o.pips.Sub(o.slippage).Mul(o.size).Mul(o.lotUnits).Add(o.entryCost))
	o.margin = o.marginAt(price)
	o.record()
}

// trail ratchets the stop loss toward price, it never loosens it.
func (o *Order) trail() {
	if o.trailingStop.IsNone() {
		return
	}
	candidate := o.trailingStop.Unwrap().Sub(o.pips)
	if o.stopLoss.IsNone() || candidate.Lt(o.stopLoss.Unwrap()) {
		o.stopLoss = optional.Some(candidate)
	}
}

func (o *Order) expired(tickTime time.Time) bool {
	return o.expiration.IsSome() && !tickTime.Before(o.expiration.Unwrap())
}

func (o *Order) marginAt(price fixed.Point) fixed.Point {
	return o.round(price.Mul(o.size).Mul(o.lotUnits).Div(o.leverage))
}

func (o *Order) record() {
	o.pipsHistory = append(o.pipsHistory, o.pips)
	o.profitHistory = append(o.profitHistory, o.profit)
	o.marginHistory = append(o.marginHistory, o.margin)
}

func (o *Order) round(p fixed.Point) fixed.Point {
	if o.digits > 0 {
		return p.Round(o.digits)
	}
	return p
}

func stamp(tickTime time.Time) Timestamps {
	return Timestamps{Wall: now(), Tick: tickTime}
}
