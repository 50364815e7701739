package bus

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Router dispatches events synchronously on the caller's goroutine. Events
// without a handler are counted and dropped.
type Router struct {
	OnTick          TickEventHandler
	OnOrderPlaced   OrderPlacedEventHandler
	OnOrderRejected OrderRejectedEventHandler
	OnOrderClosed   OrderClosedEventHandler
	OnLedger        LedgerEventHandler
	OnSample        SampleEventHandler
	OnRunFinished   RunFinishedEventHandler

	started       time.Time
	postCount     uint64
	dispatchCount uint64
	dispatchFails uint64
}

func NewRouter() *Router {
	return &Router{started: time.Now()}
}

func (r *Router) Post(id EventId, data any) error {
	r.postCount++

	dispatched, err := r.dispatch(id, data)
	if err != nil {
		r.dispatchFails++
		return err
	}
	if dispatched {
		r.dispatchCount++
	}
	return nil
}

func (r *Router) Statistics() Statistics {
	runTime := time.Since(r.started)

	var throughput float64
	if runTime > 0 {
		throughput = float64(r.postCount) / runTime.Seconds()
	}

	return Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount,
		DispatchCount: r.dispatchCount,
		DispatchFails: r.dispatchFails,
		Throughput:    throughput,
	}
}

func (r *Router) PrintStatistics(logger *zap.Logger) {
	r.Statistics().Print(logger)
}

func (r *Router) dispatch(id EventId, data any) (bool, error) {
	switch id {
	case TickEvent:
		return deliver(id, data, r.OnTick)
	case OrderPlacedEvent:
		return deliver(id, data, r.OnOrderPlaced)
	case OrderRejectedEvent:
		return deliver(id, data, r.OnOrderRejected)
	case OrderClosedEvent:
		return deliver(id, data, r.OnOrderClosed)
	case LedgerEvent:
		return deliver(id, data, r.OnLedger)
	case SampleEvent:
		return deliver(id, data, r.OnSample)
	case RunFinishedEvent:
		return deliver(id, data, r.OnRunFinished)
	}
	return false, fmt.Errorf("unknown event id %d", id)
}

func deliver[T any, H ~func(T)](id EventId, data any, handler H) (bool, error) {
	event, ok := data.(T)
	if !ok {
		return false, fmt.Errorf("invalid payload %T for %s event", data, id)
	}
	if handler == nil {
		return false, nil
	}
	handler(event)
	return true, nil
}

