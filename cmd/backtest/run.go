package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/internal/cfg"
	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/data/duckdb"
	"github.com/peter-kozarec/strategytester/pkg/middleware"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/strategy"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
)

const (
	quietMonitorFlags   = middleware.MonitorOrdersRejected | middleware.MonitorRunFinished
	verboseMonitorFlags = middleware.MonitorAll
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one backtest and print its report",
		Flags: []cli.Flag{
			configFlag(),
			verboseFlag(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "DuckDB `FILE` the run is saved to, overrides output.database",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar on stderr",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	c, err := cfg.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	feed, err := c.Feed(ctx, logger)
	if err != nil {
		return err
	}
	acc, err := account.New(c.AccountConfig())
	if err != nil {
		return err
	}
	strategies, err := strategy.DefaultRegistry().BindAll(c.Records())
	if err != nil {
		return err
	}
	tracked, err := c.Metrics()
	if err != nil {
		return err
	}

	flags := quietMonitorFlags
	if cmd.Bool("verbose") {
		flags = verboseMonitorFlags
	}
	monitor := middleware.NewMonitor(logger, flags)
	telemetry := middleware.NewTelemetry(logger)

	var progress *middleware.Progress
	if cmd.Bool("progress") {
		progress = middleware.NewProgress(os.Stderr, feed.Len(), "backtest")
	}

	router := bus.NewRouter()
	wire(router, monitor, telemetry, progress)

	engine, err := simulation.NewEngine(logger, router, acc, strategies,
		simulation.WithMetrics(tracked...),
		simulation.WithSampleInterval(c.Tracking.SampleInterval))
	if err != nil {
		return err
	}

	result, err := engine.Run(feed)
	if err != nil {
		return err
	}

	router.PrintStatistics(logger)
	telemetry.PrintStatistics()
	metrics.GenerateReport(acc).Print(logger)

	out := cmd.String("out")
	if out == "" {
		out = c.Output.Database
	}
	if out == "" {
		return nil
	}
	return save(ctx, logger, out, result, acc)
}

func save(ctx context.Context, logger *zap.Logger, path string, result simulation.Result, acc *account.Account) error {
	store, err := duckdb.Open(logger, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("unable to close result store", zap.String("path", path), zap.Error(err))
		}
	}()

	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	if err := store.SaveRun(ctx, result, acc); err != nil {
		return fmt.Errorf("unable to save run %s: %w", result.RunID, err)
	}
	return nil
}

// wire installs the middleware chains, the monitor is the outermost wrapper.
func wire(router *bus.Router, monitor *middleware.Monitor, telemetry *middleware.Telemetry, progress *middleware.Progress) {
	tick := middleware.Chain(monitor.WithTick, telemetry.WithTick)
	finished := middleware.Chain(monitor.WithRunFinished, telemetry.WithRunFinished)
	if progress != nil {
		tick = middleware.Chain(tick, progress.WithTick)
		finished = middleware.Chain(finished, progress.WithRunFinished)
	}

	router.OnTick = tick(func(common.Observation) {})
	router.OnOrderPlaced = middleware.Chain(monitor.WithOrderPlaced, telemetry.WithOrderPlaced)(func(order.Snapshot) {})
	router.OnOrderRejected = middleware.Chain(monitor.WithOrderRejected, telemetry.WithOrderRejected)(func(bus.OrderRejected) {})
	router.OnOrderClosed = middleware.Chain(monitor.WithOrderClosed, telemetry.WithOrderClosed)(func(order.Snapshot) {})
	router.OnLedger = middleware.Chain(monitor.WithLedger, telemetry.WithLedger)(func(account.LedgerPoint) {})
	router.OnSample = middleware.Chain(monitor.WithSample, telemetry.WithSample)(func(metrics.Sample) {})
	router.OnRunFinished = finished(func(bus.RunFinished) {})
}
