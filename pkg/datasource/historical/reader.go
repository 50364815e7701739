package historical

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
)

const invalidIndex = -1

// TickReader walks the ticks of a file within [from, to].
type TickReader struct {
	file *TickFile

	from int64
	to   int64
	idx  int64
}

func NewTickReader(file *TickFile, from, to time.Time) *TickReader {
	return &TickReader{
		file: file,
		from: from.UnixNano(),
		to:   to.UnixNano(),
		idx:  invalidIndex,
	}
}

func (t *TickReader) GetNext() (common.Tick, error) {
	var tick common.Tick

	if t.idx == invalidIndex {
		idx, err := t.file.Search(t.from)
		if err != nil {
			return tick, fmt.Errorf("unable to find the first tick: %w", err)
		}
		t.idx = idx
	}

	binTick, err := t.file.Read(t.idx)
	if err != nil {
		return tick, err
	}
	t.idx++

	if binTick.TimeStamp < t.from {
		return tick, fmt.Errorf("tick %d at %d precedes the window start %d", t.idx-1, binTick.TimeStamp, t.from)
	}
	if binTick.TimeStamp > t.to {
		return tick, ErrEof
	}

	binTick.ToTick(&tick)
	return tick, nil
}

// LoadSeries reads every tick of path within [from, to] into a series for asset.
func LoadSeries(path string, asset common.Asset, from, to time.Time) (datasource.Series, error) {
	file, err := OpenTickFile(path)
	if err != nil {
		return datasource.Series{}, err
	}
	defer file.Close()

	reader := NewTickReader(file, from, to)
	series := datasource.Series{Asset: asset}

	for {
		tick, err := reader.GetNext()
		if errors.Is(err, ErrEof) {
			break
		}
		if err != nil {
			return datasource.Series{}, fmt.Errorf("asset %q: %w", asset.ID, err)
		}
		series.Ticks = append(series.Ticks, tick)
	}

	return series, nil
}
