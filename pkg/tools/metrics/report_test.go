package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/order"
)

func TestGenerateReport(t *testing.T) {
	tests := []struct {
		name     string
		account  func(t *testing.T) *fakeAccount
		validate func(t *testing.T, r Report)
	}{
		{
			name: "mixed trades over a year",
			account: func(t *testing.T) *fakeAccount {
				history := ledger(
					[]string{"1000", "1000.5", "1000.3", "1100"},
					[]string{"1000", "1000.5", "1000.3", "1100"})
				history[len(history)-1].TimeStamp = history[0].TimeStamp.AddDate(0, 0, 365)
				return &fakeAccount{
					initial: p("1000"),
					balance: p("1100"),
					equity:  p("1100"),
					history: history,
					inactive: []*order.Order{
						closedOrder(t, "1.5"),
						closedOrder(t, "0.8"),
						cancelledOrder(t),
					},
				}
			},
			validate: func(t *testing.T, r Report) {
				assertPoint(t, "1000", r.InitialEquity)
				assertPoint(t, "1100", r.FinalEquity)
				assertPoint(t, "0.1", r.TotalReturn)
				assertPoint(t, "0.1", r.AnnualizedReturn)
				assert.Equal(t, 2, r.TotalTrades)
				assert.Equal(t, 1, r.CancelledOrders)
				assert.Equal(t, 1, r.WinningTrades)
				assert.Equal(t, 1, r.LosingTrades)
				assertPoint(t, "0.5", r.WinRate)
				assertPoint(t, "2.5", r.ProfitFactor)
				assertPoint(t, "0.5", r.AverageWin)
				assertPoint(t, "0.2", r.AverageLoss)
				assertPoint(t, "0.15", r.Expectancy)
				assert.Equal(t, 2*time.Hour, r.AverageTradeDuration)
				assert.True(t, r.SharpeRatio.IsPos())
				assert.True(t, r.MaxDrawdown.IsPos())
			},
		},
		{
			name: "no trades",
			account: func(*testing.T) *fakeAccount {
				return &fakeAccount{
					initial: p("1000"),
					balance: p("1000"),
					equity:  p("1000"),
					history: ledger([]string{"1000"}, []string{"1000"}),
				}
			},
			validate: func(t *testing.T, r Report) {
				assert.Equal(t, 0, r.TotalTrades)
				assert.True(t, r.TotalReturn.IsZero())
				assert.True(t, r.AnnualizedReturn.IsZero())
				assert.True(t, r.WinRate.IsZero())
				assert.True(t, r.SharpeRatio.IsZero())
				assert.Equal(t, time.Duration(0), r.AverageTradeDuration)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, GenerateReport(tt.account(t)))
		})
	}
}

func TestReport_Print(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := GenerateReport(&fakeAccount{
		initial: p("1000"),
		balance: p("1000"),
		equity:  p("1000"),
		history: []account.LedgerPoint{{TimeStamp: t0, Balance: p("1000"), Equity: p("1000")}},
	})
	r.Print(zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("trade report").Len())
	assert.Equal(t, 1, logs.FilterMessage("trade statistics").Len())
	assert.Equal(t, 1, logs.FilterMessage("risk metrics").Len())
}
