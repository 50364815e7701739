package datasource

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/common"
)

var (
	ErrNoSeries             = errors.New("feed has no series")
	ErrEmptySeries          = errors.New("series has no ticks")
	ErrSeriesLengthMismatch = errors.New("series lengths differ")
	ErrNonMonotonicTime     = errors.New("tick timestamps are not strictly increasing")
	ErrDuplicateAsset       = errors.New("asset appears in more than one series")
)

type Series struct {
	Asset common.Asset
	Ticks []common.Tick
}

// Feed is a replayable set of equally long series, one per asset.
type Feed struct {
	series []Series
	length int
}

func NewFeed(series ...Series) (*Feed, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	seen := make(map[string]struct{}, len(series))
	length := len(series[0].Ticks)

	for _, s := range series {
		if _, ok := seen[s.Asset.ID]; ok {
			return nil, fmt.Errorf("asset %q: %w", s.Asset.ID, ErrDuplicateAsset)
		}
		seen[s.Asset.ID] = struct{}{}

		if len(s.Ticks) == 0 {
			return nil, fmt.Errorf("asset %q: %w", s.Asset.ID, ErrEmptySeries)
		}
		if len(s.Ticks) != length {
			return nil, fmt.Errorf("asset %q has %d ticks, expected %d: %w",
				s.Asset.ID, len(s.Ticks), length, ErrSeriesLengthMismatch)
		}
		for i := 1; i < len(s.Ticks); i++ {
			if !s.Ticks[i].TimeStamp.After(s.Ticks[i-1].TimeStamp) {
				return nil, fmt.Errorf("asset %q at index %d: %w", s.Asset.ID, i, ErrNonMonotonicTime)
			}
		}
	}

	return &Feed{series: series, length: length}, nil
}

func (f *Feed) Len() int { return f.length }

// At returns the synchronized observation at index i. The observation carries
// the timestamp of the first series.
func (f *Feed) At(i int) common.Observation {
	ticks := make(map[string]common.Tick, len(f.series))
	for _, s := range f.series {
		ticks[s.Asset.ID] = s.Ticks[i]
	}
	return common.Observation{
		Index:     i,
		TimeStamp: f.series[0].Ticks[i].TimeStamp,
		Ticks:     ticks,
	}
}

func (f *Feed) Assets() []common.Asset {
	assets := make([]common.Asset, len(f.series))
	for i, s := range f.series {
		assets[i] = s.Asset
	}
	return assets
}

func (f *Feed) Asset(id string) (common.Asset, bool) {
	for _, s := range f.series {
		if s.Asset.ID == id {
			return s.Asset, true
		}
	}
	return common.Asset{}, false
}

func (f *Feed) Series(id string) (Series, bool) {
	for _, s := range f.series {
		if s.Asset.ID == id {
			return s, true
		}
	}
	return Series{}, false
}

func (f *Feed) FirstTime() time.Time { return f.series[0].Ticks[0].TimeStamp }
func (f *Feed) LastTime() time.Time  { return f.series[0].Ticks[f.length-1].TimeStamp }
