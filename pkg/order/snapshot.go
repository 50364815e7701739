package order

import (
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// Snapshot is a detached copy of an order, safe to hand to observers and storage.
type Snapshot struct {
	ID           ID               `json:"id"`
	StrategyID   string           `json:"strategy_id"`
	StrategyName string           `json:"strategy_name"`
	AssetID      string           `json:"asset_id"`
	Direction    common.Direction `json:"direction"`
	Mode         common.Mode      `json:"mode"`
	Size         fixed.Point      `json:"size"`
	Strike       fixed.Point      `json:"strike"`
	EntryCost    fixed.Point      `json:"entry_cost"`
	Pips         fixed.Point      `json:"pips"`
	Profit       fixed.Point      `json:"profit"`
	Margin       fixed.Point      `json:"margin"`
	IsActive     bool             `json:"is_active"`
	IsOpen       bool             `json:"is_open"`
	WasOpened    bool             `json:"was_opened"`
	Activated    Timestamps       `json:"activated"`
	Opened       Timestamps       `json:"opened"`
	Closed       Timestamps       `json:"closed"`
	CloseReason  CloseReason      `json:"close_reason,omitempty"`
}

func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:           o.id,
		StrategyID:   o.strategyID,
		StrategyName: o.strategyName,
		AssetID:      o.assetID,
		Direction:    o.direction,
		Mode:         o.mode,
		Size:         o.size,
		Strike:       o.strike,
		EntryCost:    o.entryCost,
		Pips:         o.pips,
		Profit:       o.profit,
		Margin:       o.margin,
		IsActive:     o.isActive,
		IsOpen:       o.isOpen,
		WasOpened:    o.wasOpened,
		Activated:    o.activated,
		Opened:       o.opened,
		Closed:       o.closed,
		CloseReason:  o.closeReason,
	}
}
