// Package config loads the run file: backtest window and portfolio
// settings, strategy selection, data location, journal target and
// experiment batches.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/experiment"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/execution"
)

// Environment variables that fill journal settings left empty in the file.
const (
	EnvPostgresDSN = "QUANT_PG_DSN"
	EnvSQLitePath  = "QUANT_DB"
)

// Journal types.
const (
	JournalNone     = ""
	JournalCSV      = "csv"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

// Config is the complete run file.
type Config struct {
	Backtest    BacktestConfig     `json:"backtest" yaml:"backtest"`
	Strategy    StrategyConfig     `json:"strategy" yaml:"strategy"`
	Data        DataConfig         `json:"data" yaml:"data"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
	Experiments []ExperimentConfig `json:"experiments,omitempty" yaml:"experiments,omitempty"`
}

// BacktestConfig holds the simulation settings. Dates are YYYY-MM-DD.
type BacktestConfig struct {
	Start           string  `json:"start" yaml:"start"`
	End             string  `json:"end" yaml:"end"`
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	MaxPositions    int     `json:"max_positions" yaml:"max_positions"`
	UniverseSize    int     `json:"universe_size,omitempty" yaml:"universe_size,omitempty"`
	Pool            string  `json:"pool,omitempty" yaml:"pool,omitempty"`
	CommissionRate  float64 `json:"commission_rate" yaml:"commission_rate"`
	SlippageBP      float64 `json:"slippage_bp,omitempty" yaml:"slippage_bp,omitempty"`
	LookbackDays    int     `json:"lookback_days,omitempty" yaml:"lookback_days,omitempty"`
	UniverseRefresh string  `json:"universe_refresh,omitempty" yaml:"universe_refresh,omitempty"` // daily, weekly, once or N
	CloseAtEnd      bool    `json:"close_at_end,omitempty" yaml:"close_at_end,omitempty"`
}

// StrategyConfig names a preset and/or explicit layers. Explicit layers
// override the preset per key.
type StrategyConfig struct {
	Preset    string               `json:"preset,omitempty" yaml:"preset,omitempty"`
	Name      string               `json:"name,omitempty" yaml:"name,omitempty"`
	Selection strategy.LayerConfig `json:"selection,omitempty" yaml:"selection,omitempty"`
	Entry     strategy.LayerConfig `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit      strategy.LayerConfig `json:"exit,omitempty" yaml:"exit,omitempty"`
	Execution strategy.LayerConfig `json:"execution,omitempty" yaml:"execution,omitempty"`
}

type DataConfig struct {
	// Dir holds one <SYMBOL>.csv file per symbol.
	Dir   string              `json:"dir" yaml:"dir"`
	Pools map[string][]string `json:"pools,omitempty" yaml:"pools,omitempty"`
}

type JournalConfig struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"` // csv, sqlite or postgres
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ExperimentConfig is one run of an experiment batch. Its strategy layers
// are applied over the file's strategy section and its non-zero backtest
// fields over the file's backtest section.
type ExperimentConfig struct {
	Name     string          `json:"name" yaml:"name"`
	Strategy StrategyConfig  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Backtest *BacktestConfig `json:"backtest,omitempty" yaml:"backtest,omitempty"`
}

// Layers returns the explicit layers as a partial strategy.Config.
func (s StrategyConfig) Layers() strategy.Config {
	return strategy.Config{
		Name:      s.Name,
		Selection: s.Selection.Clone(),
		Entry:     s.Entry.Clone(),
		Exit:      s.Exit.Clone(),
		Execution: s.Execution.Clone(),
	}
}

func (s StrategyConfig) hasLayers() bool {
	return s.Selection.Name != "" || s.Entry.Name != "" || s.Exit.Name != "" || s.Execution.Name != ""
}

// LoadFromFile reads YAML, falling back to JSON, then fills journal
// settings from the environment and validates.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes a run file over Default without validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv fills an empty DSN or SQLite path from the environment.
func (c *Config) ApplyEnv() {
	if c.Journal.DSN == "" {
		c.Journal.DSN = os.Getenv(EnvPostgresDSN)
	}
	if c.Journal.DBPath == "" {
		c.Journal.DBPath = os.Getenv(EnvSQLitePath)
	}
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Backtest.validate("backtest"); err != nil {
		return err
	}
	if c.Strategy.Preset == "" && !c.Strategy.hasLayers() {
		return fmt.Errorf("strategy: a preset or explicit layers are required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	switch c.Journal.Type {
	case JournalNone:
	case JournalCSV:
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir is required for csv journals")
		}
	case JournalSQLite:
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path (or %s) is required for sqlite journals", EnvSQLitePath)
		}
	case JournalPostgres:
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn (or %s) is required for postgres journals", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("journal.type must be csv, sqlite or postgres, got %q", c.Journal.Type)
	}

	seen := map[string]bool{}
	for i, e := range c.Experiments {
		if e.Name == "" {
			return fmt.Errorf("experiments[%d].name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("experiments[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true
		if e.Backtest != nil {
			merged := c.Backtest.merge(*e.Backtest)
			if err := merged.validate(fmt.Sprintf("experiments[%d].backtest", i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b BacktestConfig) validate(prefix string) error {
	start, err := parseDate(b.Start)
	if err != nil {
		return fmt.Errorf("%s.start: %w", prefix, err)
	}
	end, err := parseDate(b.End)
	if err != nil {
		return fmt.Errorf("%s.end: %w", prefix, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%s.end must not be before %s.start", prefix, prefix)
	}
	if b.InitialCapital <= 0 {
		return fmt.Errorf("%s.initial_capital must be positive", prefix)
	}
	if b.MaxPositions < 1 {
		return fmt.Errorf("%s.max_positions must be >= 1", prefix)
	}
	if b.UniverseSize < 0 {
		return fmt.Errorf("%s.universe_size must be >= 0", prefix)
	}
	if b.CommissionRate < 0 || b.SlippageBP < 0 {
		return fmt.Errorf("%s: commission_rate and slippage_bp must be >= 0", prefix)
	}
	if b.LookbackDays < 0 {
		return fmt.Errorf("%s.lookback_days must be >= 0", prefix)
	}
	if _, err := backtest.ParseRefresh(b.UniverseRefresh); err != nil {
		return fmt.Errorf("%s.universe_refresh: %w", prefix, err)
	}
	return nil
}

// Options converts the section to backtest options. The logger is left
// for the caller.
func (b BacktestConfig) Options() (backtest.Options, error) {
	start, err := parseDate(b.Start)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.start: %w", err)
	}
	end, err := parseDate(b.End)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.end: %w", err)
	}
	refresh, err := backtest.ParseRefresh(b.UniverseRefresh)
	if err != nil {
		return backtest.Options{}, err
	}
	return backtest.Options{
		Start:          start,
		End:            end,
		InitialCapital: b.InitialCapital,
		MaxPositions:   b.MaxPositions,
		UniverseSize:   b.UniverseSize,
		Pool:           b.Pool,
		Costs:          execution.Costs{CommissionRate: b.CommissionRate, SlippageBP: b.SlippageBP},
		LookbackDays:   b.LookbackDays,
		Refresh:        refresh,
		CloseAtEnd:     b.CloseAtEnd,
	}, nil
}

// merge returns b with every non-zero field of o applied.
func (b BacktestConfig) merge(o BacktestConfig) BacktestConfig {
	if o.Start != "" {
		b.Start = o.Start
	}
	if o.End != "" {
		b.End = o.End
	}
	if o.InitialCapital != 0 {
		b.InitialCapital = o.InitialCapital
	}
	if o.MaxPositions != 0 {
		b.MaxPositions = o.MaxPositions
	}
	if o.UniverseSize != 0 {
		b.UniverseSize = o.UniverseSize
	}
	if o.Pool != "" {
		b.Pool = o.Pool
	}
	if o.CommissionRate != 0 {
		b.CommissionRate = o.CommissionRate
	}
	if o.SlippageBP != 0 {
		b.SlippageBP = o.SlippageBP
	}
	if o.LookbackDays != 0 {
		b.LookbackDays = o.LookbackDays
	}
	if o.UniverseRefresh != "" {
		b.UniverseRefresh = o.UniverseRefresh
	}
	b.CloseAtEnd = b.CloseAtEnd || o.CloseAtEnd
	return b
}

// ResolveStrategy merges the preset, the file's explicit layers and an
// optional override into one strategy configuration.
func (c *Config) ResolveStrategy(r *strategy.Resolver, override *strategy.Config) (strategy.Config, error) {
	file := c.Strategy.Layers()
	return r.Resolve(strategy.Request{Preset: c.Strategy.Preset, File: &file, Override: override})
}

// ExperimentSpecs builds one experiment spec per configured experiment.
// An experiment with its own preset replaces the file's preset.
func (c *Config) ExperimentSpecs(r *strategy.Resolver) ([]experiment.Spec, error) {
	specs := make([]experiment.Spec, 0, len(c.Experiments))
	for _, e := range c.Experiments {
		base := c.Strategy.Layers()
		preset := c.Strategy.Preset
		if e.Strategy.Preset != "" {
			preset = e.Strategy.Preset
			base = strategy.Config{}
		}
		override := e.Strategy.Layers()
		scfg, err := r.Resolve(strategy.Request{Preset: preset, File: &base, Override: &override})
		if err != nil {
			return nil, fmt.Errorf("experiment %q: %w", e.Name, err)
		}

		bt := c.Backtest
		if e.Backtest != nil {
			bt = bt.merge(*e.Backtest)
		}
		opts, err := bt.Options()
		if err != nil {
			return nil, fmt.Errorf("experiment %q: %w", e.Name, err)
		}
		specs = append(specs, experiment.Spec{Name: e.Name, Strategy: scfg, Options: opts})
	}
	return specs, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return time.Parse(time.DateOnly, s)
}

// Default returns a runnable configuration using the default preset.
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			Start:           "2023-01-01",
			End:             "2023-12-31",
			InitialCapital:  1_000_000,
			MaxPositions:    5,
			CommissionRate:  0.0003,
			LookbackDays:    backtest.DefaultLookbackDays,
			UniverseRefresh: "daily",
		},
		Strategy: StrategyConfig{Preset: "default"},
		Data:     DataConfig{Dir: "./data"},
	}
}
