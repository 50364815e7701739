package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/internal/dbg"
)

const version = "0.3.0"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Run file in `YAML`",
		Required: true,
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log every event at debug level",
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay price series against trading strategies",
		Version: version,
		// grid axes carry their values as KEY=V1,V2
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			runCommand(),
			sweepCommand(),
			schemaCommand(),
			exportStrategyCommand(),
			dumpCommand(),
		},
	}
}

func newLogger(cmd *cli.Command) *zap.Logger {
	return dbg.NewDevLogger(dbg.Level(cmd.Bool("verbose")))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logger := dbg.NewProdLogger(zap.InfoLevel)
		logger.Error("backtest failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
