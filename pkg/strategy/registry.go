package strategy

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/risk"
)

var (
	ErrUnknownKind    = errors.New("unknown strategy kind")
	ErrKindRegistered = errors.New("strategy kind already registered")
)

const (
	KindNoise     = "noise"
	KindMACross   = "macross"
	KindExog      = "exog"
	KindReversion = "reversion"
)

// Constructor builds the policy of a validated record.
type Constructor func(rec Record, sizer *risk.Manager) (simulation.Policy, error)

type Registry struct {
	kinds map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Constructor)}
}

// DefaultRegistry knows every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(KindNoise, NewNoise)
	_ = r.Register(KindMACross, NewMACross)
	_ = r.Register(KindExog, NewExog)
	_ = r.Register(KindReversion, NewReversion)
	return r
}

func (r *Registry) Register(kind string, c Constructor) error {
	if _, ok := r.kinds[kind]; ok {
		return fmt.Errorf("%w: %q", ErrKindRegistered, kind)
	}
	r.kinds[kind] = c
	return nil
}

func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.kinds))
}

// Bind turns a record into a strategy the engine can run.
func (r *Registry) Bind(rec Record) (simulation.Strategy, error) {
	if err := rec.Validate(); err != nil {
		return simulation.Strategy{}, err
	}

	c, ok := r.kinds[rec.Kind]
	if !ok {
		return simulation.Strategy{}, fmt.Errorf("strategy %q: %w %q", rec.ID, ErrUnknownKind, rec.Kind)
	}

	sizer, err := risk.Build(rec.Risk, rec.Seed)
	if err != nil {
		return simulation.Strategy{}, fmt.Errorf("strategy %q: %w", rec.ID, err)
	}

	policy, err := c(rec, sizer)
	if err != nil {
		return simulation.Strategy{}, fmt.Errorf("strategy %q: %w", rec.ID, err)
	}

	return simulation.Strategy{
		ID:     rec.ID,
		Name:   rec.Name,
		Assets: slices.Clone(rec.Assets),
		Policy: policy,
	}, nil
}

func (r *Registry) BindAll(recs []Record) ([]simulation.Strategy, error) {
	out := make([]simulation.Strategy, 0, len(recs))
	for _, rec := range recs {
		s, err := r.Bind(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
