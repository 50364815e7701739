package middleware

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
)

type counter struct {
	events   int64
	duration time.Duration
}

// Telemetry counts events per class and accumulates the wall-clock time the
// wrapped handlers spend on them.
type Telemetry struct {
	logger   *zap.Logger
	counters map[bus.EventId]*counter
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger:   logger,
		counters: make(map[bus.EventId]*counter),
	}
}

func (t *Telemetry) Count(id bus.EventId) int64 {
	if c, ok := t.counters[id]; ok {
		return c.events
	}
	return 0
}

func (t *Telemetry) Duration(id bus.EventId) time.Duration {
	if c, ok := t.counters[id]; ok {
		return c.duration
	}
	return 0
}

func (t *Telemetry) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(obs common.Observation) {
		defer t.track(bus.TickEvent, time.Now())
		handler(obs)
	}
}

func (t *Telemetry) WithOrderPlaced(handler bus.OrderPlacedEventHandler) bus.OrderPlacedEventHandler {
	return func(s order.Snapshot) {
		defer t.track(bus.OrderPlacedEvent, time.Now())
		handler(s)
	}
}

func (t *Telemetry) WithOrderRejected(handler bus.OrderRejectedEventHandler) bus.OrderRejectedEventHandler {
	return func(r bus.OrderRejected) {
		defer t.track(bus.OrderRejectedEvent, time.Now())
		handler(r)
	}
}

func (t *Telemetry) WithOrderClosed(handler bus.OrderClosedEventHandler) bus.OrderClosedEventHandler {
	return func(s order.Snapshot) {
		defer t.track(bus.OrderClosedEvent, time.Now())
		handler(s)
	}
}

func (t *Telemetry) WithLedger(handler bus.LedgerEventHandler) bus.LedgerEventHandler {
	return func(p account.LedgerPoint) {
		defer t.track(bus.LedgerEvent, time.Now())
		handler(p)
	}
}

func (t *Telemetry) WithSample(handler bus.SampleEventHandler) bus.SampleEventHandler {
	return func(s metrics.Sample) {
		defer t.track(bus.SampleEvent, time.Now())
		handler(s)
	}
}

func (t *Telemetry) WithRunFinished(handler bus.RunFinishedEventHandler) bus.RunFinishedEventHandler {
	return func(r bus.RunFinished) {
		defer t.track(bus.RunFinishedEvent, time.Now())
		handler(r)
	}
}

func (t *Telemetry) PrintStatistics() {
	fields := make([]zap.Field, 0, 3*len(t.counters))
	for id := bus.TickEvent; id <= bus.RunFinishedEvent; id++ {
		c, ok := t.counters[id]
		if !ok || c.events == 0 {
			continue
		}
		fields = append(fields,
			zap.Int64(id.String()+"_events", c.events),
			zap.Duration(id.String()+"_total_duration", c.duration),
			zap.Duration(id.String()+"_avg_duration", c.duration/time.Duration(c.events)))
	}
	t.logger.Info("event statistics", fields...)
}

func (t *Telemetry) track(id bus.EventId, start time.Time) {
	c, ok := t.counters[id]
	if !ok {
		c = &counter{}
		t.counters[id] = c
	}
	c.events++
	c.duration += time.Since(start)
}
