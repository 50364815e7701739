package strategy

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/strategytester/pkg/tools/risk"
)

var ErrInvalidRecord = errors.New("invalid strategy record")

// Record is the persisted form of a configured strategy. It carries plain data
// only, behaviour is rebound from Kind on import.
type Record struct {
	ID     string             `yaml:"id" json:"id" jsonschema:"title=ID,description=Unique strategy id within a run,required" validate:"required"`
	Name   string             `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name"`
	Kind   string             `yaml:"kind" json:"kind" jsonschema:"title=Kind,description=Registered policy kind,enum=noise,enum=macross,enum=exog,enum=reversion,required" validate:"required"`
	Assets []string           `yaml:"assets" json:"assets" jsonschema:"title=Assets,description=Asset ids the strategy may trade,required" validate:"required,min=1,unique,dive,required"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params,description=Kind specific parameters"`
	Risk   risk.Config        `yaml:"risk" json:"risk" jsonschema:"title=Risk,description=Order sizing,required"`
	Seed   int64              `yaml:"seed,omitempty" json:"seed,omitempty" jsonschema:"title=Seed,description=Seed of random policies and sizers"`
}

func (r Record) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidRecord, r.ID, err)
	}
	return nil
}

// Param returns the named parameter or the fallback.
func (r Record) Param(key string, fallback float64) float64 {
	if v, ok := r.Params[key]; ok {
		return v
	}
	return fallback
}

// Export writes the record as YAML after validating it.
func Export(w io.Writer, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("unable to encode strategy %q: %w", rec.ID, err)
	}
	return enc.Close()
}

// Import reads one YAML record, unknown fields are rejected.
func Import(r io.Reader) (Record, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
