package risk

import (
	"fmt"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// Account is the read-only ledger view sizers work from.
type Account interface {
	Balance() fixed.Point
	FreeMargin() fixed.Point
	Equity() fixed.Point
	History() []account.LedgerPoint
	InactiveOrders() []*order.Order
}

// Sizer proposes a raw order size, the Manager bounds and rounds it.
type Sizer interface {
	OrderSize(acc Account, exog common.Exog) fixed.Point
}

type SizerFunc func(acc Account, exog common.Exog) fixed.Point

func (f SizerFunc) OrderSize(acc Account, exog common.Exog) fixed.Point {
	return f(acc, exog)
}

// Basis selects the ledger quantity a sizer is proportional to.
type Basis string

const (
	BasisBalance    Basis = "balance"
	BasisFreeMargin Basis = "free_margin"
	BasisEquity     Basis = "equity"
)

func ParseBasis(s string) (Basis, error) {
	switch b := Basis(s); b {
	case BasisBalance, BasisFreeMargin, BasisEquity:
		return b, nil
	case "":
		return BasisBalance, nil
	}
	return "", fmt.Errorf("%w: unknown basis %q", ErrInvalidConfig, s)
}

func (b Basis) value(acc Account) fixed.Point {
	switch b {
	case BasisFreeMargin:
		return acc.FreeMargin()
	case BasisEquity:
		return acc.Equity()
	}
	return acc.Balance()
}

func (b Basis) series(history []account.LedgerPoint) []fixed.Point {
	out := make([]fixed.Point, len(history))
	for i, p := range history {
		switch b {
		case BasisFreeMargin:
			out[i] = p.FreeMargin
		case BasisEquity:
			out[i] = p.Equity
		default:
			out[i] = p.Balance
		}
	}
	return out
}

// closedTrades returns the last n inactive orders that actually opened.
func closedTrades(acc Account, n int) []*order.Order {
	var trades []*order.Order
	for _, o := range acc.InactiveOrders() {
		if o.WasOpened() {
			trades = append(trades, o)
		}
	}
	if len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	return trades
}
