package main

import (
	"context"
	"errors"
	"math/rand"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/internal/cfg"
	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/simulation/sweep"
	"github.com/peter-kozarec/strategytester/pkg/strategy"
)

var errNoGrid = errors.New("at least one --grid axis is required")

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:                      "sweep",
		Usage:                     "Run the configured strategies over a parameter grid",
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			configFlag(),
			verboseFlag(),
			&cli.StringSliceFlag{
				Name:    "grid",
				Aliases: []string{"g"},
				Usage:   "Grid axis as `KEY=V1,V2,...`, repeatable",
			},
			&cli.IntFlag{
				Name:  "random",
				Usage: "Run `Q` random grid points instead of the whole grid",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Seed of the random grid sampling",
				Value: 1,
			},
		},
		Action: sweepAction,
	}
}

func sweepAction(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	c, err := cfg.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	paramset, err := parseGrid(cmd.StringSlice("grid"))
	if err != nil {
		return err
	}

	trials := sweep.Grid(paramset)
	if q := int(cmd.Int("random")); q > 0 {
		trials = sweep.Random(paramset, q, rand.New(rand.NewSource(int64(cmd.Int("seed")))))
	}

	feed, err := c.Feed(ctx, logger)
	if err != nil {
		return err
	}
	rank, err := c.RankMetric()
	if err != nil {
		return err
	}
	tracked, err := c.Metrics()
	if err != nil {
		return err
	}

	registry := strategy.DefaultRegistry()
	bind := func(params sweep.Params) ([]simulation.Strategy, error) {
		recs := c.Records()
		for i := range recs {
			recs[i].Params = params.Merge(recs[i].Params)
		}
		return registry.BindAll(recs)
	}

	runner := sweep.NewRunner(logger, feed, bind,
		sweep.WithRank(rank, false),
		sweep.WithEngineOptions(
			simulation.WithMetrics(tracked...),
			simulation.WithSampleInterval(c.Tracking.SampleInterval)))

	results, err := runner.Run(ctx, trials, func() (*account.Account, error) {
		return account.New(c.AccountConfig())
	})
	if err != nil {
		return err
	}

	for i, trial := range results {
		logger.Info("trial",
			zap.Int("rank", i+1),
			zap.Stringer("params", trial.Params),
			zap.Stringer("run_id", trial.Result.RunID),
			zap.Bool("blown", trial.Result.Blown),
			zap.String("balance", trial.Balance.String()),
			zap.String(rank.Name, trial.Score.String()))
	}
	return nil
}

func parseGrid(axes []string) (map[string][]float64, error) {
	if len(axes) == 0 {
		return nil, errNoGrid
	}
	paramset := make(map[string][]float64, len(axes))
	for _, axis := range axes {
		key, values, err := sweep.ParseAxis(axis)
		if err != nil {
			return nil, err
		}
		paramset[key] = values
	}
	return paramset, nil
}
