package indicators

import (
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// ZScore measures how far the latest point sits from the window mean, in
// sample standard deviations.
type ZScore struct {
	data   *fixed.Window
	latest fixed.Point
}

func NewZScore(windowSize int) *ZScore {
	return &ZScore{
		data: fixed.NewWindow(windowSize),
	}
}

func (z *ZScore) AddPoint(p fixed.Point) {
	z.data.Push(p)
	z.latest = p
}

// Value is zero until the window is full and while the window is flat.
func (z *ZScore) Value() fixed.Point {
	if !z.IsReady() {
		return fixed.Zero
	}

	values := z.data.Values()
	mean := fixed.Mean(values)
	stdDev := fixed.SampleStdDev(values, mean)
	if stdDev.IsZero() {
		return fixed.Zero
	}
	return z.latest.Sub(mean).Div(stdDev)
}

func (z *ZScore) Mean() fixed.Point {
	return z.data.Mean()
}

func (z *ZScore) IsReady() bool {
	return z.data.Full()
}
