package cfg

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/strategy"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var ErrInvalidConfig = errors.New("invalid run configuration")

const (
	SourceSynthetic  = "synthetic"
	SourceHistorical = "historical"
	SourceDuckDB     = "duckdb"

	PresetFX    = "fx"
	PresetStock = "stock"
)

var (
	defaultAccountID      = "account"
	defaultInitialBalance = fixed.FromInt(10000, 0)
	defaultLeverage       = fixed.FromInt(100, 0)
	defaultDigits         = 5
	defaultStart          = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultInterval       = time.Minute
	defaultMetrics        = []string{"roi", "sharpe_ratio", "max_drawdown", "win_rate"}
)

// Config is the run file consumed by the backtest command.
type Config struct {
	Account    Account           `yaml:"account" json:"account" jsonschema:"title=Account,required"`
	Assets     []Asset           `yaml:"assets" json:"assets" jsonschema:"title=Assets,description=Price series fed to the engine,required" validate:"required,min=1,unique=ID,dive"`
	Strategies []strategy.Record `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies,required" validate:"required,min=1,unique=ID,dive"`
	Tracking   Tracking          `yaml:"tracking,omitempty" json:"tracking,omitempty" jsonschema:"title=Tracking"`
	Output     Output            `yaml:"output,omitempty" json:"output,omitempty" jsonschema:"title=Output"`
}

type Account struct {
	ID              string       `yaml:"id,omitempty" json:"id,omitempty" jsonschema:"title=ID"`
	Name            string       `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name"`
	InitialBalance  fixed.Point  `yaml:"initial_balance,omitempty" json:"initial_balance,omitempty" jsonschema:"title=Initial balance,description=Defaults to 10000"`
	Leverage        fixed.Point  `yaml:"leverage,omitempty" json:"leverage,omitempty" jsonschema:"title=Leverage,description=Defaults to 100"`
	MarginCallLevel fixed.Point  `yaml:"margin_call_level,omitempty" json:"margin_call_level,omitempty" jsonschema:"title=Margin call level,description=Fraction of the initial balance in [0 1)"`
	MaxRisk         *fixed.Point `yaml:"max_risk,omitempty" json:"max_risk,omitempty" jsonschema:"title=Max risk,description=Largest margin to balance ratio in (0 1]"`
	MaxOrders       *int         `yaml:"max_orders,omitempty" json:"max_orders,omitempty" jsonschema:"title=Max orders" validate:"omitempty,gt=0"`
	Digits          *int         `yaml:"digits,omitempty" json:"digits,omitempty" jsonschema:"title=Digits,description=Ledger rounding digits. 0 disables rounding" validate:"omitempty,gte=0,lte=12"`
}

type Asset struct {
	ID         string       `yaml:"id" json:"id" jsonschema:"title=ID,required" validate:"required"`
	Preset     string       `yaml:"preset,omitempty" json:"preset,omitempty" jsonschema:"title=Preset,enum=fx,enum=stock" validate:"omitempty,oneof=fx stock"`
	LotUnits   *fixed.Point `yaml:"lot_units,omitempty" json:"lot_units,omitempty" jsonschema:"title=Lot units"`
	Spread     *fixed.Point `yaml:"spread,omitempty" json:"spread,omitempty" jsonschema:"title=Spread"`
	Commission *fixed.Point `yaml:"commission,omitempty" json:"commission,omitempty" jsonschema:"title=Commission"`
	Slippage   *fixed.Point `yaml:"slippage,omitempty" json:"slippage,omitempty" jsonschema:"title=Slippage"`
	Source     Source       `yaml:"source" json:"source" jsonschema:"title=Source,required"`
}

// Source locates the prices of an asset. Synthetic sources generate them,
// historical sources read a binary tick file and duckdb sources query a csv
// file, a parquet file or a table.
type Source struct {
	Kind string `yaml:"kind" json:"kind" jsonschema:"title=Kind,enum=synthetic,enum=historical,enum=duckdb,required" validate:"required,oneof=synthetic historical duckdb"`

	Ticks    int           `yaml:"ticks,omitempty" json:"ticks,omitempty" jsonschema:"title=Ticks,description=Number of generated ticks" validate:"gte=0"`
	Seed     int64         `yaml:"seed,omitempty" json:"seed,omitempty" jsonschema:"title=Seed"`
	Start    time.Time     `yaml:"start,omitempty" json:"start,omitempty" jsonschema:"title=Start"`
	Interval time.Duration `yaml:"interval,omitempty" json:"interval,omitempty" jsonschema:"title=Interval"`
	Scale    float64       `yaml:"scale,omitempty" json:"scale,omitempty" jsonschema:"title=Scale,description=Laplace noise scale" validate:"gte=0"`

	Format      string     `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,enum=csv,enum=parquet,enum=table" validate:"omitempty,oneof=csv parquet table"`
	Path        string     `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"title=Path,description=File path or table name"`
	Database    string     `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=DuckDB file holding the table"`
	TimeColumn  string     `yaml:"time_column,omitempty" json:"time_column,omitempty" jsonschema:"title=Time column"`
	PriceColumn string     `yaml:"price_column,omitempty" json:"price_column,omitempty" jsonschema:"title=Price column"`
	From        *time.Time `yaml:"from,omitempty" json:"from,omitempty" jsonschema:"title=From"`
	To          *time.Time `yaml:"to,omitempty" json:"to,omitempty" jsonschema:"title=To"`
}

type Tracking struct {
	Metrics        []string `yaml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"title=Metrics" validate:"dive,oneof=roi sharpe_ratio sortino_ratio max_drawdown win_rate"`
	SampleInterval int      `yaml:"sample_interval,omitempty" json:"sample_interval,omitempty" jsonschema:"title=Sample interval,description=Ticks between samples. 0 keeps the final sample only" validate:"gte=0"`
	Rank           string   `yaml:"rank,omitempty" json:"rank,omitempty" jsonschema:"title=Rank,description=Metric sweeps are ranked by" validate:"omitempty,oneof=roi sharpe_ratio sortino_ratio max_drawdown win_rate"`
}

type Output struct {
	Database string `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=DuckDB file results are written to"`
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open config: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load decodes, defaults and validates one run file.
func Load(r io.Reader) (Config, error) {
	var c Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Account.ID == "" {
		c.Account.ID = defaultAccountID
	}
	if c.Account.InitialBalance.IsZero() {
		c.Account.InitialBalance = defaultInitialBalance
	}
	if c.Account.Leverage.IsZero() {
		c.Account.Leverage = defaultLeverage
	}
	if c.Account.Digits == nil {
		digits := defaultDigits
		c.Account.Digits = &digits
	}

	for i := range c.Assets {
		a := &c.Assets[i]
		if a.Preset == "" {
			a.Preset = PresetFX
		}
		if a.Source.Kind == SourceSynthetic {
			if a.Source.Start.IsZero() {
				a.Source.Start = defaultStart
			}
			if a.Source.Interval == 0 {
				a.Source.Interval = defaultInterval
			}
		}
	}

	if len(c.Tracking.Metrics) == 0 {
		c.Tracking.Metrics = slices.Clone(defaultMetrics)
	}
	if c.Tracking.Rank == "" {
		c.Tracking.Rank = "roi"
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.AccountConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	assets := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		if err := a.Source.validate(); err != nil {
			return fmt.Errorf("%w: asset %q: %w", ErrInvalidConfig, a.ID, err)
		}
		assets[a.ID] = true
	}

	for _, rec := range c.Strategies {
		for _, id := range rec.Assets {
			if !assets[id] {
				return fmt.Errorf("%w: strategy %q trades undeclared asset %q", ErrInvalidConfig, rec.ID, id)
			}
		}
	}
	return nil
}

func (s Source) validate() error {
	switch s.Kind {
	case SourceSynthetic:
		if s.Ticks <= 0 {
			return errors.New("synthetic source needs a positive tick count")
		}
	case SourceHistorical:
		if s.Path == "" {
			return errors.New("historical source needs a path")
		}
	case SourceDuckDB:
		if s.Path == "" || s.Format == "" {
			return errors.New("duckdb source needs a format and a path")
		}
	}
	if s.From != nil && s.To != nil && s.To.Before(*s.From) {
		return fmt.Errorf("source window ends %s before it starts %s", s.To, s.From)
	}
	return nil
}

func (c Config) AccountConfig() account.Config {
	a := c.Account
	out := account.Config{
		ID:              a.ID,
		Name:            a.Name,
		InitialBalance:  a.InitialBalance,
		Leverage:        a.Leverage,
		MarginCallLevel: a.MarginCallLevel,
	}
	if a.MaxRisk != nil {
		out.MaxRisk = optional.Some(*a.MaxRisk)
	}
	if a.MaxOrders != nil {
		out.MaxOrders = optional.Some(*a.MaxOrders)
	}
	if a.Digits != nil {
		out.Digits = *a.Digits
	}
	return out
}

// Records returns copies, callers may rewrite their params.
func (c Config) Records() []strategy.Record {
	out := make([]strategy.Record, len(c.Strategies))
	for i, rec := range c.Strategies {
		out[i] = cloneRecord(rec)
	}
	return out
}

func (c Config) Record(id string) (strategy.Record, bool) {
	for _, rec := range c.Strategies {
		if rec.ID == id {
			return cloneRecord(rec), true
		}
	}
	return strategy.Record{}, false
}

func (c Config) Metrics() ([]metrics.Metric, error) {
	return metrics.Lookup(c.Tracking.Metrics...)
}

func (c Config) RankMetric() (metrics.Metric, error) {
	m, err := metrics.Lookup(c.Tracking.Rank)
	if err != nil {
		return metrics.Metric{}, err
	}
	return m[0], nil
}

func cloneRecord(rec strategy.Record) strategy.Record {
	rec.Assets = slices.Clone(rec.Assets)
	rec.Params = maps.Clone(rec.Params)
	rec.Risk.Params = maps.Clone(rec.Risk.Params)
	return rec
}
