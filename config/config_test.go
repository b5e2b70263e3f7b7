package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/builtin"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "default", cfg.Strategy.Preset)
	assert.Equal(t, 5, cfg.Backtest.MaxPositions)
	assert.NoError(t, cfg.Validate())

	opts, err := cfg.Backtest.Options()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), opts.Start)
	assert.Equal(t, backtest.RefreshDaily, opts.Refresh)
	assert.Equal(t, 0.0003, opts.Costs.CommissionRate)
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing start", func(c *Config) { c.Backtest.Start = "" }, "backtest.start"},
		{"bad end", func(c *Config) { c.Backtest.End = "31/12/2023" }, "backtest.end"},
		{"end before start", func(c *Config) { c.Backtest.End = "2022-01-01" }, "must not be before"},
		{"capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, "backtest.initial_capital must be positive"},
		{"max positions", func(c *Config) { c.Backtest.MaxPositions = 0 }, "backtest.max_positions must be >= 1"},
		{"negative cost", func(c *Config) { c.Backtest.SlippageBP = -1 }, "slippage_bp must be >= 0"},
		{"refresh", func(c *Config) { c.Backtest.UniverseRefresh = "hourly" }, "universe_refresh"},
		{"no strategy", func(c *Config) { c.Strategy = StrategyConfig{} }, "preset or explicit layers"},
		{"layers only", func(c *Config) {
			c.Strategy = StrategyConfig{Entry: strategy.LayerConfig{Name: "buy_hold"}}
		}, ""},
		{"no data", func(c *Config) { c.Data.Dir = "" }, "data.dir is required"},
		{"journal type", func(c *Config) { c.Journal.Type = "mongo" }, "journal.type"},
		{"csv dir", func(c *Config) { c.Journal.Type = JournalCSV }, "journal.dir"},
		{"sqlite path", func(c *Config) { c.Journal.Type = JournalSQLite }, "journal.db_path"},
		{"postgres dsn", func(c *Config) { c.Journal.Type = JournalPostgres }, "journal.dsn"},
		{"experiment name", func(c *Config) { c.Experiments = []ExperimentConfig{{}} }, "experiments[0].name"},
		{"experiment dup", func(c *Config) {
			c.Experiments = []ExperimentConfig{{Name: "a"}, {Name: "a"}}
		}, "duplicate name"},
		{"experiment backtest", func(c *Config) {
			c.Experiments = []ExperimentConfig{{Name: "a", Backtest: &BacktestConfig{MaxPositions: -2}}}
		}, "experiments[0].backtest.max_positions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Strategy.Exit = strategy.LayerConfig{Name: "trailing", Params: strategy.Params{"trailing_pct": 0.07}}
			cfg.Journal = JournalConfig{Type: JournalCSV, Dir: "./out"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Backtest, loaded.Backtest)
			assert.Equal(t, cfg.Strategy.Preset, loaded.Strategy.Preset)
			assert.Equal(t, "trailing", loaded.Strategy.Exit.Name)
			assert.Equal(t, 0.07, loaded.Strategy.Exit.Params["trailing_pct"])
			assert.Equal(t, cfg.Journal.Dir, loaded.Journal.Dir)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "tried YAML and JSON")

	require.NoError(t, os.WriteFile(path, []byte("backtest:\n  max_positions: 0\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://quant@localhost/quant")
	t.Setenv(EnvSQLitePath, "/tmp/runs.db")

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  type: postgres\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://quant@localhost/quant", cfg.Journal.DSN)
	assert.Equal(t, "/tmp/runs.db", cfg.Journal.DBPath)

	cfg = &Config{Journal: JournalConfig{DSN: "from-file"}}
	cfg.ApplyEnv()
	assert.Equal(t, "from-file", cfg.Journal.DSN)
}

func TestResolveStrategy(t *testing.T) {
	cfg := Default()
	cfg.Strategy.Preset = "b1_trailing"
	cfg.Strategy.Exit = strategy.LayerConfig{Params: strategy.Params{"trailing_pct": 0.03}}

	r := strategy.NewResolver(builtin.Registry())
	override := &strategy.Config{Execution: strategy.LayerConfig{Name: "next_open"}}
	got, err := cfg.ResolveStrategy(r, override)
	require.NoError(t, err)

	assert.Equal(t, "trailing", got.Exit.Name)
	assert.Equal(t, 0.03, got.Exit.Params["trailing_pct"])
	assert.Equal(t, "next_open", got.Execution.Name)

	_, err = builtin.Factory().Build(got)
	assert.NoError(t, err)

	cfg.Strategy.Preset = "missing"
	_, err = cfg.ResolveStrategy(r, nil)
	assert.ErrorIs(t, err, strategy.ErrUnknownPreset)
}

func TestExperimentSpecs(t *testing.T) {
	data := []byte(`
backtest:
  start: 2024-01-01
  end: 2024-06-30
  max_positions: 3
strategy:
  preset: default
data:
  dir: ./data
experiments:
  - name: base
  - name: tight
    strategy:
      exit:
        params:
          max_holding_days: 3
    backtest:
      max_positions: 8
      universe_refresh: weekly
  - name: trailing
    strategy:
      preset: b1_trailing
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	specs, err := cfg.ExperimentSpecs(strategy.NewResolver(builtin.Registry()))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "base", specs[0].Name)
	assert.Equal(t, 3, specs[0].Options.MaxPositions)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), specs[0].Options.End)

	assert.Equal(t, 8, specs[1].Options.MaxPositions)
	assert.Equal(t, backtest.RefreshWeekly, specs[1].Options.Refresh)
	assert.Equal(t, 3, specs[1].Strategy.Exit.Params["max_holding_days"])
	assert.Equal(t, 10, specs[0].Strategy.Exit.Params["max_holding_days"])

	assert.Equal(t, "trailing", specs[2].Strategy.Exit.Name)

	for _, s := range specs {
		_, err := builtin.Factory().Build(s.Strategy)
		assert.NoError(t, err, s.Name)
	}
}
