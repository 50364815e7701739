package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var ErrUnknownMetric = errors.New("unknown metric")

// Account is the read-only view metrics are computed from.
type Account interface {
	InitialBalance() fixed.Point
	Balance() fixed.Point
	Equity() fixed.Point
	History() []account.LedgerPoint
	InactiveOrders() []*order.Order
}

type Metric struct {
	Name string
	Fn   func(Account) fixed.Point
}

type Value struct {
	Name  string      `json:"name"`
	Value fixed.Point `json:"value"`
}

type Sample struct {
	Index     int       `json:"index"`
	TimeStamp time.Time `json:"ts"`
	Values    []Value   `json:"values"`
}

func (s Sample) Get(name string) (fixed.Point, bool) {
	for _, v := range s.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return fixed.Zero, false
}

// Take evaluates every metric against acc in the given order.
func Take(index int, ts time.Time, acc Account, metrics []Metric) Sample {
	values := make([]Value, len(metrics))
	for i, m := range metrics {
		values[i] = Value{Name: m.Name, Value: m.Fn(acc)}
	}
	return Sample{Index: index, TimeStamp: ts, Values: values}
}

func ROI() Metric {
	return Metric{Name: "roi", Fn: roi}
}

// SharpeRatio divides the excess return over the run by the sample deviation
// of the balance history.
func SharpeRatio(riskFreeRate fixed.Point) Metric {
	return Metric{
		Name: "sharpe_ratio",
		Fn: func(acc Account) fixed.Point {
			balances := balanceSeries(acc.History())
			sigma := fixed.SampleStdDev(balances, fixed.Mean(balances))
			if sigma.IsZero() {
				return fixed.Zero
			}
			return roi(acc).Sub(riskFreeRate).Div(sigma)
		},
	}
}

// SortinoRatio divides the mean return per closure by the downside deviation
// of those returns.
func SortinoRatio(riskFreeRate fixed.Point) Metric {
	return Metric{
		Name: "sortino_ratio",
		Fn: func(acc Account) fixed.Point {
			return fixed.SortinoRatio(closureReturns(balanceSeries(acc.History())), riskFreeRate)
		},
	}
}

func MaxDrawdown() Metric {
	return Metric{
		Name: "max_drawdown",
		Fn: func(acc Account) fixed.Point {
			return maxDrawdown(equitySeries(acc.History()))
		},
	}
}

func WinRate() Metric {
	return Metric{
		Name: "win_rate",
		Fn: func(acc Account) fixed.Point {
			var wins, total int
			for _, o := range acc.InactiveOrders() {
				if !o.WasOpened() {
					continue
				}
				total++
				if o.RealizedProfit().IsPos() {
					wins++
				}
			}
			if total == 0 {
				return fixed.Zero
			}
			return fixed.FromInt(wins, 0).DivInt(total)
		},
	}
}

// Lookup resolves metric names as they appear in run configuration.
func Lookup(names ...string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	for _, name := range names {
		switch name {
		case "roi":
			out = append(out, ROI())
		case "sharpe_ratio":
			out = append(out, SharpeRatio(fixed.Zero))
		case "sortino_ratio":
			out = append(out, SortinoRatio(fixed.Zero))
		case "max_drawdown":
			out = append(out, MaxDrawdown())
		case "win_rate":
			out = append(out, WinRate())
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
	}
	return out, nil
}

func roi(acc Account) fixed.Point {
	initial := acc.InitialBalance()
	if initial.IsZero() {
		return fixed.Zero
	}
	return acc.Balance().Sub(initial).Div(initial)
}

func maxDrawdown(equities []fixed.Point) fixed.Point {
	result := fixed.Zero
	if len(equities) == 0 {
		return result
	}

	peak := equities[0]
	for _, eq := range equities {
		if eq.Gt(peak) {
			peak = eq
		}
		if !peak.IsPos() {
			continue
		}
		if dd := peak.Sub(eq).Div(peak); dd.Gt(result) {
			result = dd
		}
	}
	return result
}

func balanceSeries(history []account.LedgerPoint) []fixed.Point {
	out := make([]fixed.Point, len(history))
	for i, p := range history {
		out[i] = p.Balance
	}
	return out
}

func equitySeries(history []account.LedgerPoint) []fixed.Point {
	out := make([]fixed.Point, len(history))
	for i, p := range history {
		out[i] = p.Equity
	}
	return out
}
