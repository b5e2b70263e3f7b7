package experiment

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/performance"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func wave(sym string, n int, phase float64) []market.Bar {
	out := make([]market.Bar, n)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/3+phase)
		out[i] = market.Bar{Symbol: sym, Date: d0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func testProvider() market.Provider {
	return market.NewMemory(map[string][]market.Bar{
		"AAA": wave("AAA", 60, 0),
		"BBB": wave("BBB", 60, 1.5),
	}, nil)
}

func baseSpec() Spec {
	return Spec{
		Name: "ema",
		Strategy: strategy.Config{
			Selection: strategy.LayerConfig{Name: "universe"},
			Entry:     strategy.LayerConfig{Name: "ema_cross", Params: strategy.Params{"fast": 3, "slow": 8}},
			Exit:      strategy.LayerConfig{Name: "trailing"},
			Execution: strategy.LayerConfig{Name: "close"},
		},
		Options: backtest.Options{
			Start:          d0.AddDate(0, 0, 10),
			End:            d0.AddDate(0, 0, 59),
			InitialCapital: 100_000,
			MaxPositions:   2,
		},
	}
}

func TestEngineRunsInInputOrder(t *testing.T) {
	t.Parallel()

	specs := Sweep(baseSpec(), strategy.LayerExit, "trailing_pct", []any{0.02, 0.05, 0.1, 0.2})
	e := &Engine{Provider: testProvider(), Factory: builtin.Factory(), Parallelism: 3}

	rep, err := e.Run(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, rep.Runs, 4)

	for i, run := range rep.Runs {
		assert.Equal(t, specs[i].Name, run.Name)

		// Each run matches the same spec run alone.
		c, err := builtin.Factory().Build(specs[i].Strategy)
		require.NoError(t, err)
		solo, err := backtest.Run(context.Background(), testProvider(), c, specs[i].Options)
		require.NoError(t, err)
		assert.Equal(t, solo.Trades, run.Result.Trades)
		assert.Equal(t, solo.Equity, run.Result.Equity)
		assert.Equal(t, specs[i].Strategy.Exit.Params["trailing_pct"], run.Result.Strategy.Exit.Params["trailing_pct"])
	}
}

func TestEngineFailsBeforeRunning(t *testing.T) {
	t.Parallel()

	bad := baseSpec()
	bad.Name = "broken"
	bad.Strategy.Exit.Params = strategy.Params{"trail": 0.1}

	e := &Engine{Provider: testProvider(), Factory: builtin.Factory()}
	_, err := e.Run(context.Background(), []Spec{baseSpec(), bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.ErrUnknownParam)
	assert.ErrorContains(t, err, "broken")

	bad = baseSpec()
	bad.Options.MaxPositions = 0
	_, err = e.Run(context.Background(), []Spec{bad})
	assert.Error(t, err)
}

func TestEngineNamesRuns(t *testing.T) {
	t.Parallel()

	a, b := baseSpec(), baseSpec()
	a.Name, b.Name = "", ""
	e := &Engine{Provider: testProvider(), Factory: builtin.Factory(), Parallelism: 1}
	rep, err := e.Run(context.Background(), []Spec{a, b})
	require.NoError(t, err)
	assert.Equal(t, "universe_ema_cross_trailing_close", rep.Runs[0].Name)
	assert.Equal(t, "universe_ema_cross_trailing_close#2", rep.Runs[1].Name)
}

func runWith(name string, sharpe performance.Value) Run {
	return Run{Name: name, Result: &backtest.Result{Metrics: performance.Metrics{Sharpe: sharpe}}}
}

func TestRank(t *testing.T) {
	t.Parallel()

	rep := &Report{Runs: []Run{
		runWith("a", performance.Defined(1)),
		runWith("null", performance.Null()),
		runWith("b", performance.Defined(2)),
		runWith("tie", performance.Defined(1)),
		runWith("inf", performance.Inf()),
	}}

	names := func(runs []Run) []string {
		out := make([]string, len(runs))
		for i, r := range runs {
			out[i] = r.Name
		}
		return out
	}

	desc, err := rep.Rank("sharpe", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"inf", "b", "a", "tie", "null"}, names(desc))

	asc, err := rep.Rank("sharpe", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "tie", "b", "inf", "null"}, names(asc))

	// Input order is untouched.
	assert.Equal(t, "a", rep.Runs[0].Name)

	_, err = rep.Rank("alpha", true)
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	t.Parallel()

	rep := &Report{Runs: []Run{runWith("a", performance.Defined(1.23456))}}
	rows := rep.Table(rep.Runs)
	require.Len(t, rows, 2)
	assert.Equal(t, "name", rows[0][0])
	assert.Equal(t, "sharpe", rows[0][4])
	assert.Equal(t, "1.2346", rows[1][4])
	assert.Equal(t, "n/a", rows[1][1])
}

func TestSweepLeavesBaseAlone(t *testing.T) {
	t.Parallel()

	base := baseSpec()
	specs := Sweep(base, strategy.LayerEntry, "fast", []any{2, 4})
	require.Len(t, specs, 2)
	assert.Equal(t, "ema_fast=2", specs[0].Name)
	assert.Equal(t, 4, specs[1].Strategy.Entry.Params["fast"])
	assert.Equal(t, 3, base.Strategy.Entry.Params["fast"])
}
