package risk

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	ErrInvalidConfig = errors.New("invalid risk configuration")
	ErrUnknownSizer  = errors.New("unknown sizer kind")
)

const (
	KindConstantLots    = "constant_lots"
	KindConstantRate    = "constant_rate"
	KindKelly           = "kelly"
	KindAccountVariance = "account_variance"
	KindRandomUniform   = "random_uniform"
)

// Config is the plain data form of a Manager, it is what strategy records
// persist. Zero limits fall back to the Manager defaults.
type Config struct {
	Kind   string             `yaml:"kind" json:"kind" validate:"required,oneof=constant_lots constant_rate kelly account_variance random_uniform"`
	On     string             `yaml:"on,omitempty" json:"on,omitempty" validate:"omitempty,oneof=balance free_margin equity"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Min    float64            `yaml:"min,omitempty" json:"min,omitempty" validate:"gte=0"`
	Max    float64            `yaml:"max,omitempty" json:"max,omitempty" validate:"gte=0"`
	Digits int                `yaml:"digits,omitempty" json:"digits,omitempty" validate:"gte=0,lte=8"`
}

// Build binds cfg to a Manager. The seed only matters for random sizing.
func Build(cfg Config, seed int64) (*Manager, error) {
	sizer, err := buildSizer(cfg, seed)
	if err != nil {
		return nil, err
	}

	var options []Option
	if cfg.Min != 0 || cfg.Max != 0 {
		if cfg.Min < 0 || cfg.Max <= 0 || cfg.Min > cfg.Max {
			return nil, fmt.Errorf("%w: size limits [%g, %g]", ErrInvalidConfig, cfg.Min, cfg.Max)
		}
		options = append(options, WithLimits(fixed.FromFloat64(cfg.Min), fixed.FromFloat64(cfg.Max)))
	}
	if cfg.Digits > 0 {
		options = append(options, WithDigits(cfg.Digits))
	}

	return NewManager(sizer, options...), nil
}

func buildSizer(cfg Config, seed int64) (Sizer, error) {
	on, err := ParseBasis(cfg.On)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindConstantLots:
		return ConstantLots{Lots: param(cfg, "lots", 0.1)}, nil
	case KindConstantRate:
		return ConstantRate{Rate: param(cfg, "rate", 0.1), On: on}, nil
	case KindKelly:
		return Kelly{
			N:           intParam(cfg, "n", 10),
			DefaultLots: param(cfg, "default_lots", 0.01),
			Scale:       param(cfg, "scale", 1),
		}, nil
	case KindAccountVariance:
		return AccountVariance{
			N:           intParam(cfg, "n", 20),
			On:          on,
			DefaultLots: param(cfg, "default_lots", 0.01),
			Multiplier:  param(cfg, "multiplier", 1),
		}, nil
	case KindRandomUniform:
		return NewRandomUniform(seed), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSizer, cfg.Kind)
}

func param(cfg Config, key string, fallback float64) fixed.Point {
	if v, ok := cfg.Params[key]; ok {
		return fixed.FromFloat64(v)
	}
	return fixed.FromFloat64(fallback)
}

func intParam(cfg Config, key string, fallback int) int {
	if v, ok := cfg.Params[key]; ok {
		return int(v)
	}
	return fallback
}
