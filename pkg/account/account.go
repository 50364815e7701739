package account

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	ErrOrderNotFound = errors.New("order is not active")
	ErrEmptyCloseIDs = errors.New("explicit close id list is empty, pass nil to close everything")
	ErrMissingPrice  = errors.New("observation has no price for asset")
	ErrTornDown      = errors.New("account is torn down")
	ErrInvalidOrder  = errors.New("order cannot be placed")
)

var now = time.Now

type LedgerPoint struct {
	TimeStamp  time.Time   `json:"ts"`
	Balance    fixed.Point `json:"balance"`
	FreeMargin fixed.Point `json:"free_margin"`
	Equity     fixed.Point `json:"equity"`
	NAV        fixed.Point `json:"nav"`
}

type RunInfo struct {
	FirstTick  time.Time `json:"first_tick"`
	LastTick   time.Time `json:"last_tick"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Account is the ledger of a single run. It is not safe for concurrent use.
type Account struct {
	cfg Config

	balance    fixed.Point
	freeMargin fixed.Point
	equity     fixed.Point
	nav        fixed.Point
	isBlown    bool
	isTornDown bool

	idCounter order.ID
	active    map[order.ID]*order.Order
	inactive  map[order.ID]*order.Order

	history []LedgerPoint
	runInfo RunInfo
}

func New(cfg Config) (*Account, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Account{cfg: cfg}
	a.Reset()
	return a, nil
}

// Reset returns the account to its freshly constructed state.
func (a *Account) Reset() {
	a.balance = a.cfg.InitialBalance
	a.freeMargin = a.cfg.InitialBalance
	a.equity = a.cfg.InitialBalance
	a.nav = fixed.Zero
	a.isBlown = false
	a.isTornDown = false
	a.idCounter = 0
	a.active = make(map[order.ID]*order.Order)
	a.inactive = make(map[order.ID]*order.Order)
	a.history = nil
	a.runInfo = RunInfo{}
}

// PlaceOrders admits orders in submission order. Orders failing admission are
// dropped silently, the returned ids are the admitted ones.
func (a *Account) PlaceOrders(orders []*order.Order, tickTime time.Time) ([]order.ID, error) {
	if a.isTornDown {
		return nil, ErrTornDown
	}
	a.begin(tickTime)

	var admitted []order.ID
	for _, o := range orders {
		if o == nil {
			return admitted, fmt.Errorf("%w: nil order", ErrInvalidOrder)
		}
		if !o.IsActive() || o.ID() != 0 {
			return admitted, fmt.Errorf("%w: order %d on asset %q is terminated or already placed",
				ErrInvalidOrder, o.ID(), o.AssetID())
		}
		if !a.admissible(o) {
			continue
		}

		a.idCounter++
		if err := o.Bind(a.idCounter); err != nil {
			return admitted, err
		}

		a.active[o.ID()] = o
		a.freeMargin = a.round(a.freeMargin.Sub(o.Margin()))
		a.nav = a.round(a.nav.Add(o.Margin()))
		a.equity = a.round(a.equity.Add(o.UnrealizedProfit()))
		a.record(tickTime)

		admitted = append(admitted, o.ID())
	}

	return admitted, nil
}

// Update reconciles the ledger with one observation and returns the ids of the
// orders closed during it.
func (a *Account) Update(obs common.Observation) ([]order.ID, error) {
	if a.isTornDown {
		return nil, ErrTornDown
	}
	a.begin(obs.TimeStamp)

	if !a.balance.IsPos() {
		a.isBlown = true
		return nil, nil
	}

	var closed []order.ID

	if len(a.active) > 0 && a.equity.Lte(a.marginCallLevel()) {
		closed = a.closeAll(a.activeIDs(), order.ReasonStopOut, obs.TimeStamp)
	}

	var triggered []order.ID
	for _, id := range a.activeIDs() {
		o := a.active[id]

		price, ok := obs.Price(o.AssetID())
		if !ok {
			return closed, fmt.Errorf("order %d on asset %q: %w", id, o.AssetID(), ErrMissingPrice)
		}

		stillActive, err := o.Update(price, obs.TimeStamp)
		if err != nil {
			return closed, err
		}
		if !stillActive {
			triggered = append(triggered, id)
		}
	}

	lastEquity, lastNAV := a.equity, a.nav
	a.markToMarket()

	closed = append(closed, a.closeAll(triggered, order.ReasonNone, obs.TimeStamp)...)

	if len(triggered) == 0 && (!lastEquity.Eq(a.equity) || !lastNAV.Eq(a.nav)) {
		a.record(obs.TimeStamp)
	}

	return closed, nil
}

func (a *Account) CloseOrder(id order.ID, tickTime time.Time) error {
	_, err := a.CloseAllOrders([]order.ID{id}, tickTime)
	return err
}

// CloseAllOrders closes the given active orders, nil closes every active order.
// Nothing is closed when any id is unknown.
func (a *Account) CloseAllOrders(ids []order.ID, tickTime time.Time) ([]order.ID, error) {
	if a.isTornDown {
		return nil, ErrTornDown
	}
	if ids == nil {
		ids = a.activeIDs()
	} else if len(ids) == 0 {
		return nil, ErrEmptyCloseIDs
	}

	for _, id := range ids {
		if _, ok := a.active[id]; !ok {
			return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
	}

	a.begin(tickTime)
	return a.closeAll(ids, order.ReasonManual, tickTime), nil
}

// TearDown closes everything still active at the last tick and freezes the run.
func (a *Account) TearDown(firstTick, lastTick, runStartedAt time.Time) ([]order.ID, error) {
	if a.isTornDown {
		return nil, ErrTornDown
	}
	a.begin(lastTick)

	closed := a.closeAll(a.activeIDs(), order.ReasonTearDown, lastTick)

	a.runInfo = RunInfo{
		FirstTick:  firstTick,
		LastTick:   lastTick,
		StartedAt:  runStartedAt,
		FinishedAt: now(),
	}
	a.isTornDown = true

	return closed, nil
}

func (a *Account) closeAll(ids []order.ID, reason order.CloseReason, tickTime time.Time) []order.ID {
	closed := make([]order.ID, 0, len(ids))
	for _, id := range ids {
		o, ok := a.active[id]
		if !ok {
			continue
		}
		a.settle(o, reason, tickTime)
		closed = append(closed, id)
	}
	return closed
}

// settle is the only closure path, it moves the order to the inactive set and
// folds its result into the ledger.
func (a *Account) settle(o *order.Order, reason order.CloseReason, tickTime time.Time) {
	if reason != order.ReasonNone {
		o.Terminate(reason, tickTime)
	}

	delete(a.active, o.ID())
	a.inactive[o.ID()] = o

	a.balance = a.round(a.balance.Add(o.RealizedProfit()))
	a.freeMargin = a.round(a.freeMargin.Add(o.Margin()))
	a.nav = a.round(a.nav.Sub(o.Margin()))
	a.equity = a.round(a.balance.Add(a.unrealized()))

	if !a.balance.IsPos() {
		a.isBlown = true
	}

	a.record(tickTime)
}

func (a *Account) markToMarket() {
	nav := fixed.Zero
	for _, o := range a.active {
		nav = nav.Add(o.Margin())
	}

	a.nav = a.round(nav)
	a.equity = a.round(a.balance.Add(a.unrealized()))
	a.freeMargin = a.round(a.equity.Sub(a.nav))
}

// unrealized counts the profit still held by the active set. Orders that
// triggered this tick hold their realized profit until they are settled.
func (a *Account) unrealized() fixed.Point {
	sum := fixed.Zero
	for _, o := range a.active {
		if o.IsActive() {
			sum = sum.Add(o.UnrealizedProfit())
		} else {
			sum = sum.Add(o.RealizedProfit())
		}
	}
	return sum
}

func (a *Account) admissible(o *order.Order) bool {
	if a.isBlown || !a.balance.IsPos() {
		return false
	}
	if a.freeMargin.Lt(o.Margin()) {
		return false
	}
	if a.cfg.MaxRisk.IsSome() && a.nav.Div(a.balance).Gt(a.cfg.MaxRisk.Unwrap()) {
		return false
	}
	if a.cfg.MaxOrders.IsSome() && len(a.active) >= a.cfg.MaxOrders.Unwrap() {
		return false
	}
	return true
}

func (a *Account) marginCallLevel() fixed.Point {
	return a.cfg.MarginCallLevel.Mul(a.cfg.InitialBalance)
}

// begin records the opening state the first time the ledger is touched.
func (a *Account) begin(tickTime time.Time) {
	if len(a.history) == 0 {
		a.record(tickTime)
	}
}

func (a *Account) record(tickTime time.Time) {
	a.history = append(a.history, LedgerPoint{
		TimeStamp:  tickTime,
		Balance:    a.balance,
		FreeMargin: a.freeMargin,
		Equity:     a.equity,
		NAV:        a.nav,
	})
}

func (a *Account) round(p fixed.Point) fixed.Point {
	if a.cfg.Digits > 0 {
		return p.Round(a.cfg.Digits)
	}
	return p
}

func (a *Account) activeIDs() []order.ID {
	return slices.Sorted(maps.Keys(a.active))
}

func (a *Account) Config() Config              { return a.cfg }
func (a *Account) ID() string                  { return a.cfg.ID }
func (a *Account) Name() string                { return a.cfg.Name }
func (a *Account) InitialBalance() fixed.Point { return a.cfg.InitialBalance }
func (a *Account) Leverage() fixed.Point       { return a.cfg.Leverage }
func (a *Account) Digits() int                 { return a.cfg.Digits }
func (a *Account) Balance() fixed.Point        { return a.balance }
func (a *Account) FreeMargin() fixed.Point     { return a.freeMargin }
func (a *Account) Equity() fixed.Point         { return a.equity }
func (a *Account) NAV() fixed.Point            { return a.nav }
func (a *Account) IsBlown() bool               { return a.isBlown }
func (a *Account) IsTornDown() bool            { return a.isTornDown }
func (a *Account) ActiveCount() int            { return len(a.active) }
func (a *Account) InactiveCount() int          { return len(a.inactive) }
func (a *Account) History() []LedgerPoint      { return a.history }
func (a *Account) RunInfo() RunInfo            { return a.runInfo }

// ActiveOrders returns the active orders in ascending id order.
func (a *Account) ActiveOrders() []*order.Order {
	return sortedOrders(a.active)
}

// InactiveOrders returns the terminated orders in ascending id order.
func (a *Account) InactiveOrders() []*order.Order {
	return sortedOrders(a.inactive)
}

func (a *Account) Order(id order.ID) (*order.Order, bool) {
	if o, ok := a.active[id]; ok {
		return o, true
	}
	o, ok := a.inactive[id]
	return o, ok
}

func sortedOrders(m map[order.ID]*order.Order) []*order.Order {
	out := make([]*order.Order, 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[id])
	}
	return out
}
