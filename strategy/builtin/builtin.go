// Package builtin wires every bundled layer variant and preset into a
// strategy.Registry.
package builtin

import (
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/entry"
	"github.com/rustyeddy/quant/strategy/execution"
	"github.com/rustyeddy/quant/strategy/exit"
	"github.com/rustyeddy/quant/strategy/selection"
)

// Registry returns a new registry holding all bundled variants and presets.
func Registry() *strategy.Registry {
	r := strategy.NewRegistry()
	selection.Register(r)
	entry.Register(r)
	exit.Register(r)
	execution.Register(r)
	for _, p := range Presets() {
		r.RegisterPreset(p)
	}
	return r
}

// Factory is a Factory over Registry().
func Factory() *strategy.Factory {
	return strategy.NewFactory(Registry())
}

func layer(name string, params strategy.Params) strategy.LayerConfig {
	return strategy.LayerConfig{Name: name, Params: params}
}

// Presets returns the bundled strategy presets.
func Presets() []strategy.Preset {
	return []strategy.Preset{
		{
			Name:        "default",
			Description: "Top 20 by index weight, B1 entry with J < 13, hold 10 days, T+1 open execution",
			Config: strategy.Config{
				Selection: layer("top_weight", strategy.Params{"top_n": 20}),
				Entry:     layer("b1", strategy.Params{"j_threshold": 13}),
				Exit:      layer("time", strategy.Params{"max_holding_days": 10}),
				Execution: layer("next_open", nil),
			},
		},
		{
			Name:        "b1_tplus1",
			Description: "B1 selection and entry with fixed stop/target, T+1 open execution",
			Config: strategy.Config{
				Selection: layer("b1", nil),
				Entry:     layer("b1", nil),
				Exit:      layer("fixed", nil),
				Execution: layer("next_open", nil),
			},
		},
		{
			Name:        "b1_trailing",
			Description: "B1 with an 8% trailing stop",
			Config: strategy.Config{
				Selection: layer("b1", nil),
				Entry:     layer("b1", nil),
				Exit:      layer("trailing", strategy.Params{"trailing_pct": 0.08}),
				Execution: layer("next_open", nil),
			},
		},
		{
			Name:        "b1_advanced",
			Description: "B1 with combined trailing stop and 20 day holding limit",
			Config: strategy.Config{
				Selection: layer("b1", strategy.Params{"j_threshold": -10, "big_positive_pct": 0.06}),
				Entry:     layer("b1", strategy.Params{"take_profit_pct": 0.25}),
				Exit:      layer("advanced", strategy.Params{"trailing_pct": 0.10, "max_holding_days": 20}),
				Execution: layer("next_open", nil),
			},
		},
		{
			Name:        "b1_aggressive",
			Description: "B1 with relaxed screening and a 12% trailing stop at the close",
			Config: strategy.Config{
				Selection: layer("b1", strategy.Params{"j_threshold": -5, "big_positive_pct": 0.04}),
				Entry:     layer("b1", strategy.Params{"take_profit_pct": 0.35}),
				Exit:      layer("trailing", strategy.Params{"trailing_pct": 0.12}),
				Execution: layer("close", nil),
			},
		},
		{
			Name:        "b1_conservative",
			Description: "B1 with strict screening, 8% stop and 20% target",
			Config: strategy.Config{
				Selection: layer("b1", strategy.Params{"j_threshold": -15, "big_positive_pct": 0.07, "ma_window": 30}),
				Entry:     layer("b1", strategy.Params{"stop_loss_pct": 0.08, "take_profit_pct": 0.20}),
				Exit:      layer("fixed", strategy.Params{"stop_loss_pct": 0.08, "take_profit_pct": 0.20}),
				Execution: layer("next_open", nil),
			},
		},
	}
}
