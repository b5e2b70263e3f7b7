package entry

import (
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

type B1Params struct {
	StopLossPct    float64 `yaml:"stop_loss_pct"`
	TakeProfitPct  float64 `yaml:"take_profit_pct"`
	MinTradeDays   int     `yaml:"min_trade_days"`
	JThreshold     float64 `yaml:"j_threshold"`
	BigPositivePct float64 `yaml:"big_positive_pct"`
	MAWindow       int     `yaml:"ma_window"`
}

func B1Defaults() B1Params {
	return B1Params{
		StopLossPct:    0.12,
		TakeProfitPct:  0.3,
		MinTradeDays:   20,
		JThreshold:     -10,
		BigPositivePct: 0.05,
		MAWindow:       20,
	}
}

// B1 buys when the last bar shows a low J, a bottom pattern, a big positive
// candle and a close above its moving average. The stop sits below the
// prior bar's low and the target above the close.
type B1 struct {
	params B1Params
	meta   map[string]string
}

func NewB1(p strategy.Params) (strategy.Entry, strategy.Params, error) {
	return newB1(p, map[string]string{"source": "b1_entry"})
}

// NewB1TPlus1 is B1 tagged for next-open execution.
func NewB1TPlus1(p strategy.Params) (strategy.Entry, strategy.Params, error) {
	return newB1(p, map[string]string{"source": "b1_tplus1_entry", "execution": "T+1_open"})
}

func newB1(p strategy.Params, meta map[string]string) (strategy.Entry, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, B1Defaults())
	if err != nil {
		return nil, nil, err
	}
	if err := checkPct("stop_loss_pct", cfg.StopLossPct); err != nil {
		return nil, nil, err
	}
	if cfg.TakeProfitPct < 0 {
		return nil, nil, strategy.Invalid("take_profit_pct", "must be >= 0, got %g", cfg.TakeProfitPct)
	}
	if cfg.MAWindow < 1 {
		return nil, nil, strategy.Invalid("ma_window", "must be >= 1, got %d", cfg.MAWindow)
	}
	return &B1{params: cfg, meta: meta}, resolved, nil
}

func (e *B1) Generate(symbol string, h market.Series) []strategy.Signal {
	if len(h) == 0 || len(h) < e.params.MinTradeDays {
		return nil
	}
	i := len(h) - 1
	if !indicators.IsKDJLow(h, i, e.params.JThreshold) ||
		!indicators.IsBottomPattern(h, i) ||
		!indicators.IsBigPositive(h, i, e.params.BigPositivePct) ||
		!indicators.IsAboveMA(h, i, e.params.MAWindow) {
		return nil
	}

	bar := h[i]
	stop, target := levels(bar.Close, e.params.StopLossPct, e.params.TakeProfitPct)
	if i >= 1 {
		stop = h[i-1].Low * (1 - e.params.StopLossPct)
	}

	meta := make(map[string]string, len(e.meta))
	for k, v := range e.meta {
		meta[k] = v
	}
	return []strategy.Signal{signal(symbol, bar, stop, target, meta)}
}
