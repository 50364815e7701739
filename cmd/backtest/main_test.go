package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/datasource/historical"
	"github.com/peter-kozarec/strategytester/pkg/strategy"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

const runFile = `
account:
  initial_balance: 10000
  margin_call_level: 0.2
assets:
  - id: EURUSD
    source:
      kind: synthetic
      ticks: 300
      seed: 5
      scale: 0.001
strategies:
  - id: rnd
    kind: noise
    assets: [EURUSD]
    params:
      p: 0.05
    risk:
      kind: constant_lots
      params:
        lots: 0.1
    seed: 9
tracking:
  sample_interval: 100
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"backtest"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	config := writeFile(t, "run.yaml", runFile)

	tests := []struct {
		name     string
		args     func(t *testing.T) []string
		wantErr  bool
		validate func(t *testing.T, out string, args []string)
	}{
		{
			name: "run persists to duckdb",
			args: func(t *testing.T) []string {
				return []string{"run", "--config", config, "--out", filepath.Join(t.TempDir(), "runs.duckdb")}
			},
			validate: func(t *testing.T, _ string, args []string) {
				db, err := sql.Open("duckdb", args[len(args)-1])
				require.NoError(t, err)
				defer db.Close()

				var runs, ticks int
				require.NoError(t, db.QueryRow(`SELECT count(*), max(ticks) FROM runs`).Scan(&runs, &ticks))
				assert.Equal(t, 1, runs)
				assert.Equal(t, 300, ticks)

				var samples int
				require.NoError(t, db.QueryRow(`SELECT count(DISTINCT idx) FROM samples`).Scan(&samples))
				assert.Equal(t, 3, samples)
			},
		},
		{
			name: "run without output",
			args: func(*testing.T) []string { return []string{"run", "--config", config} },
		},
		{
			name:    "run with missing config",
			args:    func(t *testing.T) []string { return []string{"run", "--config", filepath.Join(t.TempDir(), "none.yaml")} },
			wantErr: true,
		},
		{
			name: "sweep over a grid",
			args: func(*testing.T) []string {
				return []string{"sweep", "--config", config, "--grid", "p=0.01,0.1", "--grid", "sl=0.001,0.002"}
			},
		},
		{
			name: "random sweep",
			args: func(*testing.T) []string {
				return []string{"sweep", "--config", config, "--grid", "p=0.01,0.05,0.1", "--random", "2"}
			},
		},
		{
			name:    "sweep needs a grid",
			args:    func(*testing.T) []string { return []string{"sweep", "--config", config} },
			wantErr: true,
		},
		{
			name: "schema",
			args: func(*testing.T) []string { return []string{"schema"} },
			validate: func(t *testing.T, out string, _ []string) {
				assert.Contains(t, out, `"strategies"`)
				assert.Contains(t, out, `"sample_interval"`)
			},
		},
		{
			name: "export strategy",
			args: func(*testing.T) []string { return []string{"export-strategy", "--config", config, "--id", "rnd"} },
			validate: func(t *testing.T, out string, _ []string) {
				rec, err := strategy.Import(strings.NewReader(out))
				require.NoError(t, err)
				assert.Equal(t, "rnd", rec.ID)
				assert.Equal(t, strategy.KindNoise, rec.Kind)
				assert.Equal(t, int64(9), rec.Seed)
			},
		},
		{
			name:    "export unknown strategy",
			args:    func(*testing.T) []string { return []string{"export-strategy", "--config", config, "--id", "nope"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args(t)
			out, err := execute(t, args...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, out, args)
			}
		})
	}
}

func TestDump(t *testing.T) {
	start := time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("ts,price\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "%s,1.%d\n", start.Add(time.Duration(i)*time.Second).Format("2006-01-02 15:04:05"), 1000+i)
	}
	input := writeFile(t, "quotes.csv", b.String())
	output := filepath.Join(t.TempDir(), "EURUSD.bin")

	_, err := execute(t, "dump", "--input", input, "--output", output, "--asset", "EURUSD")
	require.NoError(t, err)

	s, err := historical.LoadSeries(output, datasource.FXPair.Asset("EURUSD"), start, start.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, s.Ticks, 5)
	assert.True(t, s.Ticks[4].Price.Eq(fixed.MustParse("1.1004")))
	assert.True(t, s.Ticks[0].TimeStamp.Equal(start))
}
