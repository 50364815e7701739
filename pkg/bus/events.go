package bus

import (
	"github.com/google/uuid"

	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

type EventId uint8

const (
	TickEvent EventId = iota
	OrderPlacedEvent
	OrderRejectedEvent
	OrderClosedEvent
	LedgerEvent
	SampleEvent
	RunFinishedEvent
)

func (id EventId) String() string {
	switch id {
	case TickEvent:
		return "tick"
	case OrderPlacedEvent:
		return "order_placed"
	case OrderRejectedEvent:
		return "order_rejected"
	case OrderClosedEvent:
		return "order_closed"
	case LedgerEvent:
		return "ledger"
	case SampleEvent:
		return "sample"
	case RunFinishedEvent:
		return "run_finished"
	}
	return "unknown"
}

type OrderRejected struct {
	Order  order.Snapshot `json:"order"`
	Reason string         `json:"reason"`
}

type RunFinished struct {
	RunID   uuid.UUID   `json:"run_id"`
	Ticks   int         `json:"ticks"`
	Blown   bool        `json:"blown"`
	Balance fixed.Point `json:"balance"`
	Equity  fixed.Point `json:"equity"`
}
