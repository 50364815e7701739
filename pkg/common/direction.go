package common

import (
	"fmt"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

type Direction int8

const (
	Long  Direction = 1
	Short Direction = -1
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Pips is the direction adjusted distance of price from strike, positive when favorable.
func (d Direction) Pips(price, strike fixed.Point) fixed.Point {
	if d == Short {
		return strike.Sub(price)
	}
	return price.Sub(strike)
}

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return fmt.Sprintf("direction(%d)", int8(d))
}

type Mode string

const (
	ModeMarket  Mode = "market"
	ModePending Mode = "pending"
)

func (m Mode) Valid() bool {
	return m == ModeMarket || m == ModePending
}
