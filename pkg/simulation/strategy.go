package simulation

import (
	"slices"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// AccountView is the read-only side of the account handed to policies.
type AccountView interface {
	InitialBalance() fixed.Point
	Balance() fixed.Point
	FreeMargin() fixed.Point
	Equity() fixed.Point
	NAV() fixed.Point
	IsBlown() bool
	ActiveCount() int
	InactiveCount() int
	ActiveOrders() []*order.Order
	InactiveOrders() []*order.Order
	History() []account.LedgerPoint
}

type View struct {
	Observation common.Observation
	Account     AccountView
	Exog        common.Exog
}

// Policy decides entries and exits. Open calls return order params keyed by
// asset id, an empty map opens nothing.
type Policy interface {
	LongOpen(v View) map[string]common.OrderParams
	ShortOpen(v View) map[string]common.OrderParams
	LongClose(o *order.Order, v View) bool
	ShortClose(o *order.Order, v View) bool
}

// Modifier is implemented by policies that adjust their active orders before
// the close decision.
type Modifier interface {
	LongModify(o *order.Order, v View) error
	ShortModify(o *order.Order, v View) error
}

type Strategy struct {
	ID     string
	Name   string
	Assets []string
	Policy Policy
}

func (s *Strategy) registered(assetID string) bool {
	return slices.Contains(s.Assets, assetID)
}
