package risk

import (
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	defaultMinSize = fixed.MustParse("0.01")
	defaultMaxSize = fixed.FromInt(50, 0)
)

const defaultSizeDigits = 2

type Option func(*Manager)

func WithLimits(minSize, maxSize fixed.Point) Option {
	return func(m *Manager) {
		m.minSize = minSize
		m.maxSize = maxSize
	}
}

func WithDigits(digits int) Option {
	return func(m *Manager) {
		m.digits = digits
	}
}

// Manager bounds whatever its sizer proposes to [min, max] and rounds it.
type Manager struct {
	sizer   Sizer
	minSize fixed.Point
	maxSize fixed.Point
	digits  int
}

func NewManager(sizer Sizer, options ...Option) *Manager {
	m := &Manager{
		sizer:   sizer,
		minSize: defaultMinSize,
		maxSize: defaultMaxSize,
		digits:  defaultSizeDigits,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

func (m *Manager) OrderSize(acc Account, exog common.Exog) fixed.Point {
	size := fixed.Clamp(m.sizer.OrderSize(acc, exog), m.minSize, m.maxSize)
	return size.Round(m.digits)
}

func (m *Manager) MinSize() fixed.Point { return m.minSize }
func (m *Manager) MaxSize() fixed.Point { return m.maxSize }
func (m *Manager) Digits() int          { return m.digits }
