package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/strategy"
)

func writeBars(t *testing.T, dir string, symbols ...string) {
	t.Helper()
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, sym := range symbols {
		var b strings.Builder
		b.WriteString("date,open,high,low,close,volume\n")
		for d := 0; d < 40; d++ {
			c := 10 + float64(i) + float64(d%7)*0.5
			fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,1000\n", d0.AddDate(0, 0, d).Format(time.DateOnly), c, c+0.5, c-0.5, c)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, sym+".csv"), []byte(b.String()), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "warn"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestBacktestCommand(t *testing.T) {
	data := t.TempDir()
	writeBars(t, data, "AAA", "BBB")
	exportDir := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := run(t, "backtest",
		"--data", data,
		"--start", "2024-01-05", "--end", "2024-02-05",
		"--capital", "10000", "--max-positions", "2",
		"--selection", "universe", "--entry", "buy_hold", "--exit", "time", "--execution", "close",
		"--set", "exit.max_holding_days=3",
		"--export", exportDir,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy")
	assert.Contains(t, out, "universe_buy_hold_time_close")
	assert.Contains(t, out, "total_return")
	assert.Contains(t, out, "exported")

	runDir := filepath.Join(exportDir, "universe_buy_hold_time_close")
	for _, name := range []string{journal.EquityFile, journal.TradesFile, journal.MetricsFile, journal.ConfigYAMLFile, journal.ConfigJSONFile, "report.org"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	snap, err := os.ReadFile(filepath.Join(runDir, journal.ConfigYAMLFile))
	require.NoError(t, err)
	cfg, err := strategy.ParseConfig(snap)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Exit.Params["max_holding_days"])

	out, err = run(t, "backtest", "--data", data, "--start", "2024-01-05", "--end", "2024-02-05",
		"--preset", "b1_aggressive", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "recorded run")
}

func TestBacktestCommandErrors(t *testing.T) {
	data := t.TempDir()
	writeBars(t, data, "AAA")

	_, err := run(t, "backtest", "--data", data, "--start", "2024-01-05", "--end", "2024-02-05", "--set", "exit.trail=0.1", "--exit", "trailing")
	assert.ErrorIs(t, err, strategy.ErrUnknownParam)

	_, err = run(t, "backtest", "--data", data, "--set", "nolayer")
	assert.ErrorContains(t, err, "layer.key=value")

	_, err = run(t, "backtest", "--data", data, "--preset", "nope")
	assert.ErrorIs(t, err, strategy.ErrUnknownPreset)

	_, err = run(t, "backtest", "--data", data, "--max-positions", "0")
	assert.ErrorContains(t, err, "max_positions")
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		in    string
		layer strategy.Layer
		key   string
		want  any
		err   bool
	}{
		{in: "exit.trailing_pct=0.05", layer: strategy.LayerExit, key: "trailing_pct", want: 0.05},
		{in: "Selection.top_n=10", layer: strategy.LayerSelection, key: "top_n", want: 10},
		{in: "selection.logic=OR", layer: strategy.LayerSelection, key: "logic", want: "OR"},
		{in: "selection.conditions=[kdj, volume]", layer: strategy.LayerSelection, key: "conditions", want: []any{"kdj", "volume"}},
		{in: "entry.flag=", layer: strategy.LayerEntry, key: "flag", want: ""},
		{in: "exit", err: true},
		{in: "exit=1", err: true},
		{in: "risk.max=1", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, key, v, err := parseSet(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.layer, l)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestLayerFlagsOverride(t *testing.T) {
	lf := newLayerFlags()
	o, err := lf.override()
	require.NoError(t, err)
	assert.Nil(t, o)

	*lf.names[strategy.LayerExit] = "trailing"
	lf.sets = []string{"exit.trailing_pct=0.05", "entry.stop_loss_pct=0.02"}
	o, err = lf.override()
	require.NoError(t, err)
	assert.Equal(t, "trailing", o.Exit.Name)
	assert.Equal(t, 0.05, o.Exit.Params["trailing_pct"])
	assert.Equal(t, "", o.Entry.Name)
	assert.Equal(t, 0.02, o.Entry.Params["stop_loss_pct"])
}

func TestExperimentCommand(t *testing.T) {
	data := t.TempDir()
	writeBars(t, data, "AAA", "BBB", "CCC")
	db := filepath.Join(t.TempDir(), "runs.db")

	path := filepath.Join(t.TempDir(), "exp.yaml")
	body := fmt.Sprintf(`backtest:
  start: 2024-01-05
  end: 2024-02-05
  initial_capital: 10000
  max_positions: 2
strategy:
  selection: {name: universe}
  entry: {name: buy_hold}
  exit: {name: time, params: {max_holding_days: 2}}
  execution: {name: close}
data:
  dir: %s
journal:
  type: sqlite
  db_path: %s
experiments:
  - name: short
  - name: long
    strategy:
      exit: {params: {max_holding_days: 8}}
`, data, db)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	out, err := run(t, "--config", path, "experiment", "--rank", "total_return", "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "long")
	assert.Equal(t, 2, strings.Count(out, "recorded run"))

	_, err = run(t, "--config", path, "experiment", "--rank", "alpha")
	assert.ErrorContains(t, err, "unknown metric")

	_, err = run(t, "experiment")
	assert.ErrorContains(t, err, "--config is required")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quant.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created "+path)

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration valid")
	assert.Contains(t, out, "top_weight_b1_time_next_open")

	out, err = run(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "experiments: 0")

	_, err = run(t, "config", "validate")
	assert.Error(t, err)
}

func TestPresetsAndVersion(t *testing.T) {
	out, err := run(t, "presets")
	require.NoError(t, err)
	for _, name := range []string{"default", "b1_tplus1", "b1_trailing", "b1_advanced", "b1_aggressive", "b1_conservative"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "# default")

	out, err = run(t, "presets", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "# b1_trailing\n")
	assert.Contains(t, out, "trailing_pct: 0.08")

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "quant dev\n", out)

	_, err = run(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "unknown log level")
}
