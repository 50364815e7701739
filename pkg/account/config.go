package account

import (
	"errors"
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var ErrInvalidConfig = errors.New("invalid account configuration")

const maxDigits = 12

// Config is immutable once the account is created. Digits of 0 disables rounding.
type Config struct {
	ID              string
	Name            string
	InitialBalance  fixed.Point
	Leverage        fixed.Point
	MarginCallLevel fixed.Point
	MaxRisk         optional.Option[fixed.Point]
	MaxOrders       optional.Option[int]
	Digits          int
}

func (c Config) Validate() error {
	if !c.InitialBalance.IsPos() {
		return fmt.Errorf("%w: initial balance must be positive, got %s", ErrInvalidConfig, c.InitialBalance)
	}
	if !c.Leverage.IsPos() {
		return fmt.Errorf("%w: leverage must be positive, got %s", ErrInvalidConfig, c.Leverage)
	}
	if c.MarginCallLevel.IsNeg() || c.MarginCallLevel.Gte(fixed.One) {
		return fmt.Errorf("%w: margin call level must be in [0, 1), got %s", ErrInvalidConfig, c.MarginCallLevel)
	}
	if c.MaxRisk.IsSome() {
		if risk := c.MaxRisk.Unwrap(); !risk.IsPos() || risk.Gt(fixed.One) {
			return fmt.Errorf("%w: max risk must be in (0, 1], got %s", ErrInvalidConfig, risk)
		}
	}
	if c.MaxOrders.IsSome() && c.MaxOrders.Unwrap() <= 0 {
		return fmt.Errorf("%w: max orders must be positive, got %d", ErrInvalidConfig, c.MaxOrders.Unwrap())
	}
	if c.Digits < 0 || c.Digits > maxDigits {
		return fmt.Errorf("%w: digits must be in [0, %d], got %d", ErrInvalidConfig, maxDigits, c.Digits)
	}
	return nil
}
