package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

func TestRouter_Post(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		id       EventId
		data     any
		setup    func(r *Router, got *[]string)
		wantErr  bool
		validate func(t *testing.T, r *Router, got []string)
	}{
		{
			name: "tick dispatched inline",
			id:   TickEvent,
			data: common.Observation{Index: 3, TimeStamp: ts},
			setup: func(r *Router, got *[]string) {
				r.OnTick = func(obs common.Observation) {
					*got = append(*got, "tick")
				}
			},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Equal(t, []string{"tick"}, got)
				assert.Equal(t, uint64(1), r.Statistics().DispatchCount)
			},
		},
		{
			name: "order closed snapshot",
			id:   OrderClosedEvent,
			data: order.Snapshot{ID: 7, CloseReason: order.ReasonTakeProfit},
			setup: func(r *Router, got *[]string) {
				r.OnOrderClosed = func(s order.Snapshot) {
					*got = append(*got, string(s.CloseReason))
				}
			},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Equal(t, []string{"take-profit"}, got)
			},
		},
		{
			name: "ledger point",
			id:   LedgerEvent,
			data: account.LedgerPoint{TimeStamp: ts, Balance: fixed.FromInt(1000, 0)},
			setup: func(r *Router, got *[]string) {
				r.OnLedger = func(p account.LedgerPoint) {
					*got = append(*got, p.Balance.String())
				}
			},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Equal(t, []string{"1000"}, got)
			},
		},
		{
			name: "sample",
			id:   SampleEvent,
			data: metrics.Sample{TimeStamp: ts},
			setup: func(r *Router, got *[]string) {
				r.OnSample = func(metrics.Sample) {
					*got = append(*got, "sample")
				}
			},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Equal(t, []string{"sample"}, got)
			},
		},
		{
			name: "missing handler is dropped",
			id:   RunFinishedEvent,
			data: RunFinished{Ticks: 10},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Empty(t, got)
				stats := r.Statistics()
				assert.Equal(t, uint64(1), stats.PostCount)
				assert.Equal(t, uint64(0), stats.DispatchCount)
				assert.Equal(t, uint64(0), stats.DispatchFails)
			},
		},
		{
			name:    "payload type mismatch",
			id:      OrderPlacedEvent,
			data:    common.Observation{},
			wantErr: true,
			setup: func(r *Router, got *[]string) {
				r.OnOrderPlaced = func(order.Snapshot) {
					*got = append(*got, "placed")
				}
			},
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Empty(t, got)
				assert.Equal(t, uint64(1), r.Statistics().DispatchFails)
			},
		},
		{
			name:    "unknown event",
			id:      EventId(200),
			data:    struct{}{},
			wantErr: true,
			validate: func(t *testing.T, r *Router, got []string) {
				assert.Equal(t, uint64(1), r.Statistics().DispatchFails)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter()
			var got []string
			if tt.setup != nil {
				tt.setup(r, &got)
			}

			err := r.Post(tt.id, tt.data)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			tt.validate(t, r, got)
		})
	}
}

func TestRouter_PreservesOrder(t *testing.T) {
	r := NewRouter()

	var seen []int
	r.OnTick = func(obs common.Observation) {
		seen = append(seen, obs.Index)
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Post(TickEvent, common.Observation{Index: i}))
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
	assert.Equal(t, uint64(5), r.Statistics().PostCount)
}

func TestMergeHandlers(t *testing.T) {
	var calls []string
	first := func(e RunFinished) { calls = append(calls, "first") }
	second := func(e RunFinished) { calls = append(calls, "second") }

	merged := MergeHandlers[RunFinished](first, nil, second)
	r := NewRouter()
	r.OnRunFinished = merged

	require.NoError(t, r.Post(RunFinishedEvent, RunFinished{Ticks: 1}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRouter_PrintStatistics(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Post(TickEvent, common.Observation{}))

	assert.NotPanics(t, func() { r.PrintStatistics(zap.NewNop()) })
	assert.Equal(t, "order_rejected", OrderRejectedEvent.String())
	assert.Equal(t, "unknown", EventId(99).String())
}
