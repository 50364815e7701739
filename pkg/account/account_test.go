package account

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func p(s string) fixed.Point { return fixed.MustParse(s) }

func assertPoint(t *testing.T, want string, got fixed.Point) {
	t.Helper()
	assert.Truef(t, p(want).Eq(got), "want %s, got %s", want, got)
}

func testConfig() Config {
	return Config{
		ID:              "acc",
		Name:            "test account",
		InitialBalance:  p("1000"),
		Leverage:        p("100"),
		MarginCallLevel: p("0.3"),
		Digits:          5,
	}
}

func createTestAccount(t *testing.T, cfg Config) *Account {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func createTestOrder(t *testing.T, direction common.Direction, mode common.Mode, asset, size, strike string, terms func(*order.Terms)) *order.Order {
	t.Helper()
	tt := order.Terms{
		StrategyID: "s1",
		AssetID:    asset,
		LotUnits:   p("1000"),
		Leverage:   p("100"),
		Spread:     p("0.0001"),
		Digits:     5,
	}
	if terms != nil {
		terms(&tt)
	}
	o, err := order.New(direction, mode, p(size), p(strike), t0, tt)
	require.NoError(t, err)
	return o
}

func observation(ts time.Time, prices map[string]string) common.Observation {
	ticks := make(map[string]common.Tick, len(prices))
	for asset, price := range prices {
		ticks[asset] = common.Tick{TimeStamp: ts, Price: p(price)}
	}
	return common.Observation{TimeStamp: ts, Ticks: ticks}
}

func assertEquityInvariant(t *testing.T, a *Account) {
	t.Helper()
	sum := fixed.Zero
	for _, o := range a.ActiveOrders() {
		sum = sum.Add(o.UnrealizedProfit())
	}
	assert.Truef(t, a.Equity().Eq(a.Balance().Add(sum)),
		"equity %s != balance %s + unrealized %s", a.Equity(), a.Balance(), sum)
}

func TestAccount_New(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"valid", func(*Config) {}, true},
		{"negative balance", func(c *Config) { c.InitialBalance = p("-1") }, false},
		{"zero balance", func(c *Config) { c.InitialBalance = fixed.Zero }, false},
		{"zero leverage", func(c *Config) { c.Leverage = fixed.Zero }, false},
		{"margin call level of one", func(c *Config) { c.MarginCallLevel = fixed.One }, false},
		{"max risk above one", func(c *Config) { c.MaxRisk = optional.Some(p("1.5")) }, false},
		{"zero max orders", func(c *Config) { c.MaxOrders = optional.Some(0) }, false},
		{"too many digits", func(c *Config) { c.Digits = 13 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)

			a, err := New(cfg)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assertPoint(t, "1000", a.Balance())
			assertPoint(t, "1000", a.FreeMargin())
			assertPoint(t, "1000", a.Equity())
			assertPoint(t, "0", a.NAV())
			assert.False(t, a.IsBlown())
		})
	}
}

func TestAccount_PlaceOrders(t *testing.T) {
	tests := []struct {
		name     string
		config   func(*Config)
		orders   func(*testing.T) []*order.Order
		validate func(*testing.T, *Account, []order.ID)
	}{
		{
			name: "admitted order deducts margin",
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				assert.Equal(t, []order.ID{1}, ids)
				assertPoint(t, "998.8", a.FreeMargin())
				assertPoint(t, "1.2", a.NAV())
				assertPoint(t, "999.99999", a.Equity())
				assertPoint(t, "1000", a.Balance())
				assert.Equal(t, 1, a.ActiveCount())
				// opening state plus the placement
				assert.Len(t, a.History(), 2)
			},
		},
		{
			name: "insufficient free margin is silently rejected",
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "1000", "1.2000", nil)}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				assert.Empty(t, ids)
				assert.Equal(t, 0, a.ActiveCount())
				assertPoint(t, "1000", a.Balance())
				assertPoint(t, "1000", a.FreeMargin())
				assertPoint(t, "1000", a.Equity())
			},
		},
		{
			name:   "max orders limits the active count",
			config: func(c *Config) { c.MaxOrders = optional.Some(1) },
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{
					createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
					createTestOrder(t, common.Short, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
				}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				assert.Equal(t, []order.ID{1}, ids)
				assert.Equal(t, 1, a.ActiveCount())
			},
		},
		{
			name:   "max risk checks the committed fraction",
			config: func(c *Config) { c.MaxRisk = optional.Some(p("0.001")) },
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{
					createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
					createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
				}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				// 1.2 / 1000 is above 0.001 after the first admission
				assert.Equal(t, []order.ID{1}, ids)
			},
		},
		{
			name: "submission order is kept and ids are monotonic",
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{
					createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
					createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "1000", "1.2000", nil),
					createTestOrder(t, common.Short, common.ModeMarket, "GBPUSD", "0.2", "1.3000", nil),
				}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				assert.Equal(t, []order.ID{1, 2}, ids)
				o, ok := a.Order(2)
				require.True(t, ok)
				assert.Equal(t, "GBPUSD", o.AssetID())
				// 1.2 + 1.3 * 0.2 * 1000 / 100
				assertPoint(t, "3.8", a.NAV())
			},
		},
		{
			name: "pending order reserves margin without touching equity",
			orders: func(t *testing.T) []*order.Order {
				return []*order.Order{createTestOrder(t, common.Long, common.ModePending, "EURUSD", "0.1", "1.2100", nil)}
			},
			validate: func(t *testing.T, a *Account, ids []order.ID) {
				assert.Len(t, ids, 1)
				assertPoint(t, "1000", a.Equity())
				assertPoint(t, "1.21", a.NAV())
				assertPoint(t, "998.79", a.FreeMargin())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.config != nil {
				tt.config(&cfg)
			}
			a := createTestAccount(t, cfg)

			ids, err := a.PlaceOrders(tt.orders(t), t0)
			require.NoError(t, err)
			tt.validate(t, a, ids)
		})
	}
}

func TestAccount_PlaceOrdersRejectsInvalid(t *testing.T) {
	a := createTestAccount(t, testConfig())

	_, err := a.PlaceOrders([]*order.Order{nil}, t0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	closed := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)
	closed.Close(t0)
	_, err = a.PlaceOrders([]*order.Order{closed}, t0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	placed := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)
	_, err = a.PlaceOrders([]*order.Order{placed}, t0)
	require.NoError(t, err)
	_, err = a.PlaceOrders([]*order.Order{placed}, t0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestAccount_FreeMarginMovesByOrderMargin(t *testing.T) {
	a := createTestAccount(t, testConfig())
	o := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)

	before := a.FreeMargin()
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)
	assert.True(t, a.FreeMargin().Eq(before.Sub(o.Margin())))

	_, err = a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "1.2015"}))
	require.NoError(t, err)
	assertPoint(t, "1000.14999", a.Equity())
	assertPoint(t, "1.2015", a.NAV())
	assertPoint(t, "998.94849", a.FreeMargin())
	assertEquityInvariant(t, a)

	before = a.FreeMargin()
	require.NoError(t, a.CloseOrder(o.ID(), t0.Add(2*time.Minute)))
	assert.True(t, a.FreeMargin().Eq(before.Add(o.Margin())))
	assertPoint(t, "1000.14999", a.Balance())
	assertPoint(t, "1000.14999", a.Equity())
	assertPoint(t, "0", a.NAV())
	assert.Equal(t, order.ReasonManual, o.CloseReason())
	assert.Equal(t, 1, a.InactiveCount())
}

func TestAccount_UpdateMarksEveryAssetWithItsOwnPrice(t *testing.T) {
	a := createTestAccount(t, testConfig())
	eur := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)
	gbp := createTestOrder(t, common.Long, common.ModeMarket, "GBPUSD", "0.1", "1.3000", nil)
	_, err := a.PlaceOrders([]*order.Order{eur, gbp}, t0)
	require.NoError(t, err)

	closed, err := a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "1.2010", "GBPUSD": "1.2990"}))
	require.NoError(t, err)
	assert.Empty(t, closed)

	assertPoint(t, "0.09999", eur.Profit())
	assertPoint(t, "-0.10001", gbp.Profit())
	assertPoint(t, "999.99998", a.Equity())
	assertEquityInvariant(t, a)
}

func TestAccount_UpdateClosesTriggeredOrders(t *testing.T) {
	a := createTestAccount(t, testConfig())
	o := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", func(terms *order.Terms) {
		terms.StopLoss = optional.Some(p("0.0010"))
	})
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)

	closed, err := a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "1.1991"}))
	require.NoError(t, err)
	assert.Empty(t, closed)

	closed, err = a.Update(observation(t0.Add(2*time.Minute), map[string]string{"EURUSD": "1.1990"}))
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1}, closed)

	assert.Equal(t, order.ReasonStopLoss, o.CloseReason())
	assert.Equal(t, 0, a.ActiveCount())
	assertPoint(t, "999.89999", a.Balance())
	assertPoint(t, "999.89999", a.Equity())
	assertPoint(t, "999.89999", a.FreeMargin())
	assertPoint(t, "0", a.NAV())
	assertEquityInvariant(t, a)
}

func TestAccount_TriggeredLossLimitsAdmissionOnTheSameTick(t *testing.T) {
	a := createTestAccount(t, testConfig())
	o := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "1", "1.2000", func(terms *order.Terms) {
		terms.StopLoss = optional.Some(p("0.1"))
	})
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)

	tick := t0.Add(time.Minute)
	closed, err := a.Update(observation(tick, map[string]string{"EURUSD": "1.0500"}))
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1}, closed)
	assert.Equal(t, order.ReasonStopLoss, o.CloseReason())

	// -150 pips value and the entry spread
	assertPoint(t, "849.9999", a.Balance())
	assertPoint(t, "849.9999", a.Equity())
	assertPoint(t, "849.9999", a.FreeMargin())
	assertPoint(t, "0", a.NAV())

	last := a.History()[len(a.History())-1]
	assert.True(t, last.FreeMargin.Eq(a.Equity().Sub(a.NAV())))

	// 1.2 * 75 * 1000 / 100 = 900 of margin
	ids, err := a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "75", "1.2000", nil)}, tick)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// 1.2 * 70 * 1000 / 100 = 840 of margin
	ids, err = a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "70", "1.2000", nil)}, tick)
	require.NoError(t, err)
	assert.Equal(t, []order.ID{2}, ids)
}

func TestAccount_UpdateSettlesSeveralTriggeredOrders(t *testing.T) {
	a := createTestAccount(t, testConfig())
	sl := func(terms *order.Terms) { terms.StopLoss = optional.Some(p("0.0010")) }
	tp := func(terms *order.Terms) { terms.TakeProfit = optional.Some(p("0.0010")) }
	long := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", sl)
	short := createTestOrder(t, common.Short, common.ModeMarket, "EURUSD", "0.1", "1.2000", tp)
	open := createTestOrder(t, common.Long, common.ModeMarket, "GBPUSD", "0.1", "1.3000", nil)
	_, err := a.PlaceOrders([]*order.Order{long, short, open}, t0)
	require.NoError(t, err)

	closed, err := a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "1.1990", "GBPUSD": "1.3010"}))
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1, 2}, closed)

	// -0.10001 and 0.09999 realized
	assertPoint(t, "999.99998", a.Balance())
	assertPoint(t, "1.301", a.NAV())
	assertEquityInvariant(t, a)
	assert.True(t, a.FreeMargin().Eq(a.Equity().Sub(a.NAV())))
	for _, point := range a.History()[len(a.History())-2:] {
		assert.True(t, point.FreeMargin.Eq(point.Equity.Sub(point.NAV)))
	}
}

func TestAccount_MarginCallStopsOut(t *testing.T) {
	a := createTestAccount(t, testConfig())
	o1 := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "1", "1.2000", nil)
	o2 := createTestOrder(t, common.Short, common.ModeMarket, "GBPUSD", "0.1", "1.3000", nil)
	_, err := a.PlaceOrders([]*order.Order{o1, o2}, t0)
	require.NoError(t, err)

	closed, err := a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "0.5000", "GBPUSD": "1.3000"}))
	require.NoError(t, err)
	assert.Empty(t, closed)
	// -700.0001 and -0.00001 unrealized
	assertPoint(t, "299.99989", a.Equity())

	closed, err = a.Update(observation(t0.Add(2*time.Minute), map[string]string{"EURUSD": "0.6000", "GBPUSD": "1.3000"}))
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1, 2}, closed)

	assert.Equal(t, order.ReasonStopOut, o1.CloseReason())
	assert.Equal(t, order.ReasonStopOut, o2.CloseReason())
	// closed at the last marked valuation, before the new price is applied
	assertPoint(t, "299.99989", a.Balance())
	assertPoint(t, "299.99989", a.Equity())
	assert.Equal(t, 0, a.ActiveCount())
	assert.False(t, a.IsBlown())
}

func TestAccount_MissingPrice(t *testing.T) {
	a := createTestAccount(t, testConfig())
	_, err := a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)}, t0)
	require.NoError(t, err)

	_, err = a.Update(observation(t0.Add(time.Minute), map[string]string{"GBPUSD": "1.3"}))
	assert.ErrorIs(t, err, ErrMissingPrice)
	assert.ErrorContains(t, err, "EURUSD")
}

func TestAccount_CloseAllOrders(t *testing.T) {
	tests := []struct {
		name     string
		ids      []order.ID
		wantErr  error
		validate func(*testing.T, *Account, []order.ID)
	}{
		{
			name: "nil closes everything",
			ids:  nil,
			validate: func(t *testing.T, a *Account, closed []order.ID) {
				assert.Equal(t, []order.ID{1, 2}, closed)
				assert.Equal(t, 0, a.ActiveCount())
				assertPoint(t, "999.99998", a.Balance())
				assertPoint(t, "0", a.NAV())
			},
		},
		{
			name: "explicit ids",
			ids:  []order.ID{2},
			validate: func(t *testing.T, a *Account, closed []order.ID) {
				assert.Equal(t, []order.ID{2}, closed)
				assert.Equal(t, 1, a.ActiveCount())
			},
		},
		{
			name:    "empty explicit list is an error",
			ids:     []order.ID{},
			wantErr: ErrEmptyCloseIDs,
		},
		{
			name:    "unknown id closes nothing",
			ids:     []order.ID{1, 42},
			wantErr: ErrOrderNotFound,
			validate: func(t *testing.T, a *Account, _ []order.ID) {
				assert.Equal(t, 2, a.ActiveCount())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := createTestAccount(t, testConfig())
			_, err := a.PlaceOrders([]*order.Order{
				createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
				createTestOrder(t, common.Short, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil),
			}, t0)
			require.NoError(t, err)

			closed, err := a.CloseAllOrders(tt.ids, t0.Add(time.Minute))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, closed)
			} else {
				require.NoError(t, err)
			}
			if tt.validate != nil {
				tt.validate(t, a, closed)
			}
		})
	}
}

func TestAccount_CloseAllOrdersTwiceIsNoop(t *testing.T) {
	a := createTestAccount(t, testConfig())
	_, err := a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)}, t0)
	require.NoError(t, err)

	_, err = a.CloseAllOrders(nil, t0.Add(time.Minute))
	require.NoError(t, err)

	balance, free, equity, nav := a.Balance(), a.FreeMargin(), a.Equity(), a.NAV()
	history := len(a.History())

	closed, err := a.CloseAllOrders(nil, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.True(t, balance.Eq(a.Balance()))
	assert.True(t, free.Eq(a.FreeMargin()))
	assert.True(t, equity.Eq(a.Equity()))
	assert.True(t, nav.Eq(a.NAV()))
	assert.Len(t, a.History(), history)
}

func TestAccount_CancelledPendingOrderRealizesNothing(t *testing.T) {
	a := createTestAccount(t, testConfig())
	o := createTestOrder(t, common.Short, common.ModePending, "EURUSD", "0.1", "1.1900", nil)
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)

	require.NoError(t, a.CloseOrder(o.ID(), t0.Add(time.Minute)))
	assertPoint(t, "1000", a.Balance())
	assertPoint(t, "1000", a.FreeMargin())
	assertPoint(t, "1000", a.Equity())
}

func TestAccount_Blown(t *testing.T) {
	cfg := testConfig()
	cfg.MarginCallLevel = fixed.Zero
	a := createTestAccount(t, cfg)

	o := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "1", "1.2000", nil)
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)

	_, err = a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "0.2000"}))
	require.NoError(t, err)
	require.NoError(t, a.CloseOrder(o.ID(), t0.Add(time.Minute)))

	assertPoint(t, "-0.0001", a.Balance())
	assert.True(t, a.IsBlown())

	ids, err := a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.01", "0.2000", nil)}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, a.ActiveCount())

	closed, err := a.Update(observation(t0.Add(3*time.Minute), map[string]string{"EURUSD": "0.2000"}))
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestAccount_TearDownAndReset(t *testing.T) {
	previous := now
	finished := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return finished }
	defer func() { now = previous }()

	a := createTestAccount(t, testConfig())
	o := createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)
	_, err := a.PlaceOrders([]*order.Order{o}, t0)
	require.NoError(t, err)

	last := t0.Add(time.Hour)
	closed, err := a.TearDown(t0, last, finished.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1}, closed)
	assert.Equal(t, order.ReasonTearDown, o.CloseReason())
	assert.Equal(t, last, o.Closed().Tick)
	assert.True(t, a.IsTornDown())
	assert.Equal(t, RunInfo{FirstTick: t0, LastTick: last, StartedAt: finished.Add(-time.Second), FinishedAt: finished}, a.RunInfo())

	_, err = a.PlaceOrders(nil, last)
	assert.ErrorIs(t, err, ErrTornDown)
	_, err = a.Update(observation(last, nil))
	assert.ErrorIs(t, err, ErrTornDown)
	_, err = a.CloseAllOrders(nil, last)
	assert.ErrorIs(t, err, ErrTornDown)
	_, err = a.TearDown(t0, last, last)
	assert.ErrorIs(t, err, ErrTornDown)

	a.Reset()
	assert.False(t, a.IsTornDown())
	assert.Empty(t, a.History())
	assert.Equal(t, 0, a.InactiveCount())
	assertPoint(t, "1000", a.Balance())

	ids, err := a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.2000", nil)}, t0)
	require.NoError(t, err)
	assert.Equal(t, []order.ID{1}, ids)
}

func TestAccount_HistoryOnlyGrowsOnChanges(t *testing.T) {
	a := createTestAccount(t, testConfig())
	_, err := a.Update(observation(t0, map[string]string{"EURUSD": "1.2"}))
	require.NoError(t, err)
	_, err = a.Update(observation(t0.Add(time.Minute), map[string]string{"EURUSD": "1.3"}))
	require.NoError(t, err)
	assert.Len(t, a.History(), 1)

	_, err = a.PlaceOrders([]*order.Order{createTestOrder(t, common.Long, common.ModeMarket, "EURUSD", "0.1", "1.3000", nil)}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, a.History(), 2)

	_, err = a.Update(observation(t0.Add(2*time.Minute), map[string]string{"EURUSD": "1.3005"}))
	require.NoError(t, err)
	assert.Len(t, a.History(), 3)

	last := a.History()[2]
	assert.Equal(t, t0.Add(2*time.Minute), last.TimeStamp)
	assert.True(t, last.Equity.Eq(a.Equity()))
	assert.True(t, last.FreeMargin.Eq(a.FreeMargin()))
}
