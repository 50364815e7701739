package middleware

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorOrdersPlaced
	MonitorOrdersRejected
	MonitorOrdersClosed
	MonitorLedger
	MonitorSamples
	MonitorRunFinished
)

type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(obs common.Observation) {
		if m.enabled(MonitorTicks) {
			m.logger.Debug("tick",
				zap.Int("index", obs.Index),
				zap.Time("ts", obs.TimeStamp),
				zap.Int("assets", len(obs.Ticks)))
		}
		handler(obs)
	}
}

func (m *Monitor) WithOrderPlaced(handler bus.OrderPlacedEventHandler) bus.OrderPlacedEventHandler {
	return func(s order.Snapshot) {
		if m.enabled(MonitorOrdersPlaced) {
			m.logger.Info("order placed", orderFields(s)...)
		}
		handler(s)
	}
}

func (m *Monitor) WithOrderRejected(handler bus.OrderRejectedEventHandler) bus.OrderRejectedEventHandler {
	return func(r bus.OrderRejected) {
		if m.enabled(MonitorOrdersRejected) {
			m.logger.Warn("order rejected", append(orderFields(r.Order), zap.String("reason", r.Reason))...)
		}
		handler(r)
	}
}

func (m *Monitor) WithOrderClosed(handler bus.OrderClosedEventHandler) bus.OrderClosedEventHandler {
	return func(s order.Snapshot) {
		if m.enabled(MonitorOrdersClosed) {
			m.logger.Info("order closed", append(orderFields(s),
				zap.String("close_reason", string(s.CloseReason)),
				zap.Stringer("profit", s.Profit))...)
		}
		handler(s)
	}
}

func (m *Monitor) WithLedger(handler bus.LedgerEventHandler) bus.LedgerEventHandler {
	return func(p account.LedgerPoint) {
		if m.enabled(MonitorLedger) {
			m.logger.Debug("ledger",
				zap.Time("ts", p.TimeStamp),
				zap.Stringer("balance", p.Balance),
				zap.Stringer("free_margin", p.FreeMargin),
				zap.Stringer("equity", p.Equity),
				zap.Stringer("nav", p.NAV))
		}
		handler(p)
	}
}

func (m *Monitor) WithSample(handler bus.SampleEventHandler) bus.SampleEventHandler {
	return func(s metrics.Sample) {
		if m.enabled(MonitorSamples) {
			fields := []zap.Field{zap.Int("index", s.Index), zap.Time("ts", s.TimeStamp)}
			for _, v := range s.Values {
				fields = append(fields, zap.Stringer(v.Name, v.Value))
			}
			m.logger.Info("sample", fields...)
		}
		handler(s)
	}
}

func (m *Monitor) WithRunFinished(handler bus.RunFinishedEventHandler) bus.RunFinishedEventHandler {
	return func(r bus.RunFinished) {
		if m.enabled(MonitorRunFinished) {
			m.logger.Info("run finished",
				zap.Stringer("run_id", r.RunID),
				zap.Int("ticks", r.Ticks),
				zap.Bool("blown", r.Blown),
				zap.Stringer("balance", r.Balance),
				zap.Stringer("equity", r.Equity))
		}
		handler(r)
	}
}

func orderFields(s order.Snapshot) []zap.Field {
	return []zap.Field{
		zap.Int64("order_id", int64(s.ID)),
		zap.String("strategy_id", s.StrategyID),
		zap.String("asset_id", s.AssetID),
		zap.Stringer("direction", s.Direction),
		zap.String("mode", string(s.Mode)),
		zap.Stringer("size", s.Size),
		zap.Stringer("strike", s.Strike),
	}
}
