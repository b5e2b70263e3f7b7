package entry

import (
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

type BuyHoldParams struct {
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// BuyHold signals on every evaluation. The backtester only evaluates
// symbols without an open position, so this buys once and holds.
type BuyHold struct {
	params BuyHoldParams
}

func NewBuyHold(p strategy.Params) (strategy.Entry, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, BuyHoldParams{})
	if err != nil {
		return nil, nil, err
	}
	if err := checkPct("stop_loss_pct", cfg.StopLossPct); err != nil {
		return nil, nil, err
	}
	return &BuyHold{params: cfg}, resolved, nil
}

func (e *BuyHold) Generate(symbol string, h market.Series) []strategy.Signal {
	if len(h) == 0 {
		return nil
	}
	bar := h[len(h)-1]
	stop, target := levels(bar.Close, e.params.StopLossPct, e.params.TakeProfitPct)
	return []strategy.Signal{signal(symbol, bar, stop, target, map[string]string{"source": "buy_hold"})}
}
