package middleware

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
)

// Progress advances a terminal bar once per tick.
type Progress struct {
	bar *progressbar.ProgressBar
}

func NewProgress(w io.Writer, total int, description string) *Progress {
	return &Progress{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(0),
			progressbar.OptionClearOnFinish()),
	}
}

func (p *Progress) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(obs common.Observation) {
		_ = p.bar.Add(1)
		handler(obs)
	}
}

func (p *Progress) WithRunFinished(handler bus.RunFinishedEventHandler) bus.RunFinishedEventHandler {
	return func(r bus.RunFinished) {
		_ = p.bar.Finish()
		handler(r)
	}
}

func (p *Progress) Current() int64 {
	return p.bar.State().CurrentNum
}
