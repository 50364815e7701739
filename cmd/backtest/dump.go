package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/data/duckdb"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/datasource/historical"
)

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Convert a csv or parquet price file into a binary tick file",
		Flags: []cli.Flag{
			verboseFlag(),
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Price `FILE`", Required: true},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Binary tick `FILE`", Required: true},
			&cli.StringFlag{Name: "asset", Usage: "Asset `ID`", Required: true},
			&cli.StringFlag{Name: "format", Usage: "csv or parquet", Value: string(duckdb.KindCSV)},
			&cli.StringFlag{Name: "time-column", Usage: "Timestamp column"},
			&cli.StringFlag{Name: "price-column", Usage: "Price column"},
		},
		Action: dumpAction,
	}
}

func dumpAction(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	loader := duckdb.NewLoader(logger, "")
	defer loader.Close()

	series, err := loader.LoadSeries(ctx, datasource.FXPair.Asset(cmd.String("asset")), duckdb.Source{
		Kind:        duckdb.SourceKind(cmd.String("format")),
		Path:        cmd.String("input"),
		TimeColumn:  cmd.String("time-column"),
		PriceColumn: cmd.String("price-column"),
	})
	if err != nil {
		return err
	}

	out := cmd.String("output")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := historical.WriteBinary(f, series.Ticks); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return fmt.Errorf("unable to write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("dump finished",
		zap.String("asset", series.Asset.ID),
		zap.String("file", out),
		zap.Int("ticks", len(series.Ticks)))
	return nil
}
