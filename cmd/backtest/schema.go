package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/peter-kozarec/strategytester/internal/cfg"
	"github.com/peter-kozarec/strategytester/pkg/strategy"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the run file",
		Action: func(_ context.Context, cmd *cli.Command) error {
			raw, err := json.MarshalIndent(cfg.Schema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, string(raw))
			return err
		},
	}
}

func exportStrategyCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-strategy",
		Usage: "Print one configured strategy as a standalone record",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Strategy `ID` to export",
				Required: true,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			c, err := cfg.LoadFile(cmd.String("config"))
			if err != nil {
				return err
			}
			rec, ok := c.Record(cmd.String("id"))
			if !ok {
				return fmt.Errorf("strategy %q is not configured", cmd.String("id"))
			}
			return strategy.Export(cmd.Root().Writer, rec)
		},
	}
}
