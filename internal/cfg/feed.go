package cfg

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/data/duckdb"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/datasource/historical"
	"github.com/peter-kozarec/strategytester/pkg/datasource/synthetic"
)

var historicalEnd = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)

// Contract is the preset of the asset with its overrides applied.
func (a Asset) Contract() datasource.Preset {
	p := datasource.FXPair
	if a.Preset == PresetStock {
		p = datasource.Stock
	}
	if a.LotUnits != nil {
		p.LotUnits = *a.LotUnits
	}
	if a.Spread != nil {
		p.Spread = *a.Spread
	}
	if a.Commission != nil {
		p.Commission = *a.Commission
	}
	if a.Slippage != nil {
		p.Slippage = *a.Slippage
	}
	return p
}

// Feed loads every asset and aligns them into one feed. DuckDB sources sharing
// a database share one connection.
func (c Config) Feed(ctx context.Context, logger *zap.Logger) (*datasource.Feed, error) {
	loaders := make(map[string]*duckdb.Loader)
	defer func() {
		for _, l := range loaders {
			l.Close()
		}
	}()

	series := make([]datasource.Series, 0, len(c.Assets))
	for _, a := range c.Assets {
		s, err := a.load(ctx, logger, loaders)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", a.ID, err)
		}
		logger.Debug("series loaded",
			zap.String("asset", a.ID),
			zap.String("source", a.Source.Kind),
			zap.Int("ticks", len(s.Ticks)))
		series = append(series, s)
	}

	return datasource.NewFeed(series...)
}

func (a Asset) load(ctx context.Context, logger *zap.Logger, loaders map[string]*duckdb.Loader) (datasource.Series, error) {
	preset := a.Contract()
	src := a.Source

	switch src.Kind {
	case SourceSynthetic:
		gen := synthetic.NewGenerator(rand.New(rand.NewSource(src.Seed)), src.Start)
		gen.SetInterval(src.Interval)
		if src.Scale > 0 {
			gen.SetNoise(0, src.Scale)
		}
		return gen.Series(a.ID, preset, src.Ticks)

	case SourceHistorical:
		from, to := time.Unix(0, 0), historicalEnd
		if src.From != nil {
			from = *src.From
		}
		if src.To != nil {
			to = *src.To
		}
		s, err := historical.LoadSeries(src.Path, preset.Asset(a.ID), from, to)
		if err != nil {
			return datasource.Series{}, err
		}
		// the file carries its own costs, explicit overrides win
		for i := range s.Ticks {
			if a.Spread != nil {
				s.Ticks[i].Spread = *a.Spread
			}
			if a.Commission != nil {
				s.Ticks[i].Commission = *a.Commission
			}
			if a.Slippage != nil {
				s.Ticks[i].Slippage = *a.Slippage
			}
		}
		return s, nil

	case SourceDuckDB:
		l, ok := loaders[src.Database]
		if !ok {
			l = duckdb.NewLoader(logger, src.Database)
			loaders[src.Database] = l
		}
		return l.LoadSeries(ctx, preset.Asset(a.ID), duckdb.Source{
			Kind:        duckdb.SourceKind(src.Format),
			Path:        src.Path,
			TimeColumn:  src.TimeColumn,
			PriceColumn: src.PriceColumn,
			From:        optionalTime(src.From),
			To:          optionalTime(src.To),
			Spread:      preset.Spread,
			Commission:  preset.Commission,
			Slippage:    preset.Slippage,
		})
	}

	return datasource.Series{}, fmt.Errorf("%w: unknown source kind %q", ErrInvalidConfig, src.Kind)
}

func optionalTime(t *time.Time) optional.Option[time.Time] {
	if t == nil {
		return optional.None[time.Time]()
	}
	return optional.Some(*t)
}
