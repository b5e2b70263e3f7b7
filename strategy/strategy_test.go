package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/quant/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParams struct {
	Threshold float64  `yaml:"threshold"`
	Window    int      `yaml:"window"`
	Tags      []string `yaml:"tags"`
}

type stubLayer struct{ p stubParams }

func (s stubLayer) Select(Snapshot) []Candidate { return nil }
func (s stubLayer) Generate(string, market.Series) []Signal { return nil }
func (s stubLayer) Evaluate(Position, market.Bar) ExitDecision { return Hold }
func (s stubLayer) Fill(Signal, market.Series) (Fill, bool) { return Fill{}, false }

func stubDefaults() stubParams {
	return stubParams{Threshold: 1.5, Window: 10, Tags: []string{"a"}}
}

func stubBuilder[T any](wrap func(stubLayer) T) Builder[T] {
	return func(p Params) (T, Params, error) {
		cfg, resolved, err := Bind(p, stubDefaults())
		if err != nil {
			var zero T
			return zero, nil, err
		}
		if cfg.Window < 0 {
			var zero T
			return zero, nil, Invalid("window", "must be >= 0, got %d", cfg.Window)
		}
		return wrap(stubLayer{p: cfg}), resolved, nil
	}
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.RegisterSelection("sel", stubBuilder(func(s stubLayer) Selection { return s }))
	r.RegisterEntry("ent", stubBuilder(func(s stubLayer) Entry { return s }), "entry_alias")
	r.RegisterEntry("other", stubBuilder(func(s stubLayer) Entry { return s }))
	r.RegisterExit("ex", stubBuilder(func(s stubLayer) Exit { return s }))
	r.RegisterExecution("exe", stubBuilder(func(s stubLayer) Execution { return s }), "t+1")
	r.RegisterPreset(Preset{
		Name:        "base",
		Description: "stub preset",
		Config: Config{
			Selection: LayerConfig{Name: "sel"},
			Entry:     LayerConfig{Name: "ent", Params: Params{"threshold": 2.0, "window": 20}},
			Exit:      LayerConfig{Name: "ex"},
			Execution: LayerConfig{Name: "exe"},
		},
	})
	return r
}

func validConfig() Config {
	return Config{
		Selection: LayerConfig{Name: "sel"},
		Entry:     LayerConfig{Name: "ENT ", Params: Params{"window": 5}},
		Exit:      LayerConfig{Name: "ex"},
		Execution: LayerConfig{Name: "t+1"},
	}
}

func TestBindDefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	cfg, resolved, err := Bind(Params{"window": 3}, stubDefaults())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Window)
	assert.Equal(t, 1.5, cfg.Threshold)
	assert.Equal(t, []string{"a"}, cfg.Tags)
	assert.Equal(t, 3, resolved["window"])
	assert.Equal(t, 1.5, resolved["threshold"])
}

func TestBindRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	_, _, err := Bind(Params{"windw": 3}, stubDefaults())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownParam)
	assert.ErrorIs(t, err, ErrConfiguration)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "windw", ce.Key)
}

func TestBindRejectsBadType(t *testing.T) {
	t.Parallel()

	_, _, err := Bind(Params{"window": "ten"}, stubDefaults())
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestFactoryBuild(t *testing.T) {
	t.Parallel()

	c, err := NewFactory(testRegistry()).Build(validConfig())
	require.NoError(t, err)

	cfg := c.Config()
	assert.Equal(t, "ent", cfg.Entry.Name)
	assert.Equal(t, "exe", cfg.Execution.Name)
	assert.Equal(t, 5, cfg.Entry.Params["window"])
	assert.Equal(t, 1.5, cfg.Entry.Params["threshold"])
	assert.Equal(t, "sel_ent_ex_exe", c.Name())
	assert.Equal(t, 5, c.Entry().(stubLayer).p.Window)

	// The snapshot is a copy.
	cfg.Entry.Params["window"] = 99
	assert.Equal(t, 5, c.Config().Entry.Params["window"])
}

func TestFactoryBuildErrors(t *testing.T) {
	t.Parallel()

	f := NewFactory(testRegistry())
	tests := []struct {
		name   string
		mutate func(*Config)
		layer  Layer
		want   error
	}{
		{"missing exit", func(c *Config) { c.Exit.Name = "" }, LayerExit, ErrMissingLayer},
		{"blank selection", func(c *Config) { c.Selection.Name = "  " }, LayerSelection, ErrMissingLayer},
		{"unknown entry", func(c *Config) { c.Entry.Name = "nope" }, LayerEntry, ErrUnknownLayer},
		{"unknown param", func(c *Config) { c.Exit.Params = Params{"bogus": 1} }, LayerExit, ErrUnknownParam},
		{"invalid param", func(c *Config) { c.Execution.Params = Params{"window": -1} }, LayerExecution, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := f.Build(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrConfiguration)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.layer, ce.Layer)
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()

	f := NewFactory(testRegistry())
	c, err := f.Build(validConfig())
	require.NoError(t, err)

	y, err := c.Config().YAML()
	require.NoError(t, err)
	fromYAML, err := ParseConfig(y)
	require.NoError(t, err)
	c2, err := f.Build(fromYAML)
	require.NoError(t, err)
	assert.Equal(t, c.Config(), c2.Config())

	j, err := c.Config().JSON()
	require.NoError(t, err)
	fromJSON, err := ParseConfig(j)
	require.NoError(t, err)
	c3, err := f.Build(fromJSON)
	require.NoError(t, err)
	assert.Equal(t, c.Config(), c3.Config())
}

func TestResolverPrecedence(t *testing.T) {
	t.Parallel()

	r := NewResolver(testRegistry())
	file := &Config{Entry: LayerConfig{Params: Params{"window": 30, "tags": []any{"f"}}}}
	override := &Config{Name: "mine", Entry: LayerConfig{Params: Params{"window": 40}}}

	cfg, err := r.Resolve(Request{Preset: "base", File: file, Override: override})
	require.NoError(t, err)
	assert.Equal(t, "mine", cfg.Name)
	assert.Equal(t, "ent", cfg.Entry.Name)
	assert.Equal(t, 40, cfg.Entry.Params["window"])
	assert.Equal(t, 2.0, cfg.Entry.Params["threshold"])
	assert.Equal(t, []any{"f"}, cfg.Entry.Params["tags"])
	assert.Equal(t, "sel", cfg.Selection.Name)

	c, err := NewFactory(r.registry).Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.5, c.Config().Exit.Params["threshold"])
}

func TestResolverVariantChangeDropsParams(t *testing.T) {
	t.Parallel()

	r := NewResolver(testRegistry())

	cfg, err := r.Resolve(Request{
		Preset:   "base",
		Override: &Config{Entry: LayerConfig{Name: "other", Params: Params{"window": 7}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Entry.Name)
	assert.Equal(t, Params{"window": 7}, cfg.Entry.Params)

	// An alias of the same variant keeps the preset parameters.
	cfg, err = r.Resolve(Request{
		Preset:   "base",
		Override: &Config{Entry: LayerConfig{Name: "entry_alias"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Entry.Params["window"])
}

func TestResolverUnknownPreset(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(testRegistry()).Resolve(Request{Preset: "missing"})
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolverDoesNotMutatePreset(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	r := NewResolver(reg)
	_, err := r.Resolve(Request{Preset: "base", Override: &Config{Entry: LayerConfig{Params: Params{"window": 1}}}})
	require.NoError(t, err)

	p, err := reg.Preset("base")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Config.Entry.Params["window"])
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	assert.Equal(t, []string{"ent", "other"}, reg.Names(LayerEntry))

	n, err := reg.Canonical(LayerExecution, " T+1 ")
	require.NoError(t, err)
	assert.Equal(t, "exe", n)

	_, err = reg.Canonical(LayerExit, "zzz")
	assert.ErrorIs(t, err, ErrUnknownLayer)
}

func TestHoldingDaysAndReasons(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Position{EntryDate: d1}
	assert.Equal(t, 10, p.HoldingDays(d1.AddDate(0, 0, 10)))
	assert.Equal(t, 0, HoldingDays(d1, d1.Add(15*time.Hour)))

	for _, r := range []ExitReason{ReasonStopLoss, ReasonTakeProfit, ReasonTimeStop, ReasonTrailingStop, ReasonManual} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, ExitReason("margin_call").Valid())
}
