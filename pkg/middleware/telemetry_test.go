package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
)

func TestTelemetry_CountsAndTimes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tel := NewTelemetry(zap.New(core))

	slow := tel.WithTick(func(common.Observation) { time.Sleep(time.Millisecond) })
	closed := tel.WithOrderClosed(func(order.Snapshot) {})

	for i := 0; i < 3; i++ {
		slow(common.Observation{Index: i})
	}
	closed(order.Snapshot{})

	assert.Equal(t, int64(3), tel.Count(bus.TickEvent))
	assert.Equal(t, int64(1), tel.Count(bus.OrderClosedEvent))
	assert.Equal(t, int64(0), tel.Count(bus.SampleEvent))
	assert.GreaterOrEqual(t, tel.Duration(bus.TickEvent), 3*time.Millisecond)

	tel.PrintStatistics()
	entries := logs.FilterMessage("event statistics").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(3), fields["tick_events"])
	assert.Equal(t, int64(1), fields["order_closed_events"])
	assert.NotContains(t, fields, "sample_events")
}

func TestTelemetry_WithRouter(t *testing.T) {
	tel := NewTelemetry(zap.NewNop())
	router := bus.NewRouter()

	var ticks int
	router.OnTick = Chain(tel.WithTick)(func(common.Observation) { ticks++ })

	require.NoError(t, router.Post(bus.TickEvent, common.Observation{}))
	require.NoError(t, router.Post(bus.TickEvent, common.Observation{}))

	assert.Equal(t, 2, ticks)
	assert.Equal(t, int64(2), tel.Count(bus.TickEvent))
}
