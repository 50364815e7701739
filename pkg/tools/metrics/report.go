package metrics

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

const (
	daysPerYear = 365
	// runs spanning minutes annualize to values the decimal cannot hold
	maxAnnualized = 1e12
)

type Report struct {
	StartDate            time.Time
	EndDate              time.Time
	InitialEquity        fixed.Point
	FinalEquity          fixed.Point
	TotalReturn          fixed.Point
	AnnualizedReturn     fixed.Point
	MaxDrawdown          fixed.Point
	TotalTrades          int
	CancelledOrders      int
	WinningTrades        int
	LosingTrades         int
	WinRate              fixed.Point
	Expectancy           fixed.Point
	ProfitFactor         fixed.Point
	AverageWin           fixed.Point
	AverageLoss          fixed.Point
	AverageTradeDuration time.Duration
	SharpeRatio          fixed.Point
	SortinoRatio         fixed.Point
}

// GenerateReport summarises a finished run. Percentages are expressed as
// fractions, ratios are rounded to 5 digits.
func GenerateReport(acc Account) Report {
	report := Report{
		InitialEquity: acc.InitialBalance(),
		FinalEquity:   acc.Equity(),
	}

	history := acc.History()
	if len(history) > 0 {
		report.StartDate = history[0].TimeStamp
		report.EndDate = history[len(history)-1].TimeStamp
	}

	if report.InitialEquity.IsPos() {
		report.TotalReturn = report.FinalEquity.Div(report.InitialEquity).Sub(fixed.One).Round(5)
	}
	report.AnnualizedReturn = annualize(report.InitialEquity, report.FinalEquity, report.EndDate.Sub(report.StartDate))
	report.MaxDrawdown = maxDrawdown(equitySeries(history)).Round(5)

	var (
		totalDuration time.Duration
		totalProfit   = fixed.Zero
		totalLoss     = fixed.Zero
	)
	for _, o := range acc.InactiveOrders() {
		if !o.WasOpened() {
			report.CancelledOrders++
			continue
		}
		report.TotalTrades++

		if closed, opened := o.Closed().Tick, o.Opened().Tick; closed.After(opened) {
			totalDuration += closed.Sub(opened)
		}

		profit := o.RealizedProfit()
		if profit.IsPos() {
			totalProfit = totalProfit.Add(profit)
			report.WinningTrades++
		} else {
			totalLoss = totalLoss.Add(profit.Neg())
			report.LosingTrades++
		}
	}

	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt(report.LosingTrades)
	}
	if totalLoss.IsPos() {
		report.ProfitFactor = totalProfit.Div(totalLoss).Round(5)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt(report.TotalTrades)
		report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)
		report.WinRate = fixed.FromInt(report.WinningTrades, 0).DivInt(report.TotalTrades).Round(5)
	}

	returns := closureReturns(balanceSeries(history))
	report.SharpeRatio = fixed.SharpeRatio(returns, fixed.Zero).Round(5)
	report.SortinoRatio = fixed.SortinoRatio(returns, fixed.Zero).Round(5)

	return report
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("trade report",
		zap.Time("start_date", r.StartDate),
		zap.Time("end_date", r.EndDate),
		zap.Stringer("initial_equity", r.InitialEquity),
		zap.Stringer("final_equity", r.FinalEquity),
		zap.Stringer("total_return", r.TotalReturn),
		zap.Stringer("annualized_return", r.AnnualizedReturn),
		zap.Stringer("max_drawdown", r.MaxDrawdown))

	logger.Info("trade statistics",
		zap.Int("total_trades", r.TotalTrades),
		zap.Int("cancelled_orders", r.CancelledOrders),
		zap.Int("winning_trades", r.WinningTrades),
		zap.Int("losing_trades", r.LosingTrades),
		zap.Stringer("win_rate", r.WinRate),
		zap.Stringer("expectancy", r.Expectancy),
		zap.Stringer("profit_factor", r.ProfitFactor),
		zap.Stringer("average_win", r.AverageWin),
		zap.Stringer("average_loss", r.AverageLoss),
		zap.Duration("average_trade_duration", r.AverageTradeDuration))

	logger.Info("risk metrics",
		zap.Stringer("sharpe_ratio", r.SharpeRatio),
		zap.Stringer("sortino_ratio", r.SortinoRatio))
}

// closureReturns yields the relative balance change at every point where the
// balance moved.
func closureReturns(balances []fixed.Point) []fixed.Point {
	var returns []fixed.Point
	for i := 1; i < len(balances); i++ {
		prev, curr := balances[i-1], balances[i]
		if curr.Eq(prev) || !prev.IsPos() {
			continue
		}
		returns = append(returns, curr.Div(prev).Sub(fixed.One))
	}
	return returns
}

func annualize(initial, final fixed.Point, span time.Duration) fixed.Point {
	days := span.Hours() / 24
	if days <= 0 || !initial.IsPos() || !final.IsPos() {
		return fixed.Zero
	}

	ratio, ok := final.Div(initial).Float64()
	if !ok {
		return fixed.Zero
	}
	annual := math.Pow(ratio, daysPerYear/days) - 1
	if math.IsInf(annual, 0) || math.IsNaN(annual) || math.Abs(annual) > maxAnnualized {
		return fixed.Zero
	}
	return fixed.FromFloat64(annual).Round(5)
}
