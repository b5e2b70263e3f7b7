package entry

import (
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

type EMACrossParams struct {
	Fast          int     `yaml:"fast"`
	Slow          int     `yaml:"slow"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// EMACross buys on a bullish fast/slow EMA cross at the last bar:
// the EMA difference goes from <= 0 to > 0. Long only.
type EMACross struct {
	params EMACrossParams
}

func NewEMACross(p strategy.Params) (strategy.Entry, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, EMACrossParams{Fast: 5, Slow: 20, StopLossPct: 0.08, TakeProfitPct: 0.2})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Fast < 1 {
		return nil, nil, strategy.Invalid("fast", "must be >= 1, got %d", cfg.Fast)
	}
	if cfg.Slow <= cfg.Fast {
		return nil, nil, strategy.Invalid("slow", "must be greater than fast (%d), got %d", cfg.Fast, cfg.Slow)
	}
	if err := checkPct("stop_loss_pct", cfg.StopLossPct); err != nil {
		return nil, nil, err
	}
	return &EMACross{params: cfg}, resolved, nil
}

func (e *EMACross) Generate(symbol string, h market.Series) []strategy.Signal {
	if len(h) < e.params.Slow+1 {
		return nil
	}
	closes := h.Closes()
	fast := indicators.EMASeries(closes, e.params.Fast)
	slow := indicators.EMASeries(closes, e.params.Slow)

	i := len(h) - 1
	diff := fast[i] - slow[i]
	prev := fast[i-1] - slow[i-1]
	if !(diff > 0 && prev <= 0) {
		return nil
	}

	stop, target := levels(h[i].Close, e.params.StopLossPct, e.params.TakeProfitPct)
	return []strategy.Signal{signal(symbol, h[i], stop, target, map[string]string{"source": "ema_cross"})}
}
