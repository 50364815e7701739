package bus

import (
	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
)

type EventHandler[T any] = func(T)

type TickEventHandler EventHandler[common.Observation]
type OrderPlacedEventHandler EventHandler[order.Snapshot]
type OrderRejectedEventHandler EventHandler[OrderRejected]
type OrderClosedEventHandler EventHandler[order.Snapshot]
type LedgerEventHandler EventHandler[account.LedgerPoint]
type SampleEventHandler EventHandler[metrics.Sample]
type RunFinishedEventHandler EventHandler[RunFinished]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(event T) {
		for _, handler := range handlers {
			if handler != nil {
				handler(event)
			}
		}
	}
}
