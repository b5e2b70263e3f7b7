package exit

import (
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// AdvancedParams configures Advanced. A zero value disables that rule.
type AdvancedParams struct {
	TrailingPct       float64 `yaml:"trailing_pct"`
	MaxHoldingDays    int     `yaml:"max_holding_days"`
	LockProfitAfterRR float64 `yaml:"lock_profit_after_rr"`
}

// Advanced combines the position's stop and target with a trailing stop and
// a holding limit. Rules are checked in a fixed order and the first one to
// trigger wins:
//
//	stop_loss > trailing_stop > take_profit > time_stop
//
// With LockProfitAfterRR set, a position whose open profit reaches that
// multiple of its initial risk gets its stop raised to the entry price.
type Advanced struct {
	params AdvancedParams
}

func NewAdvanced(p strategy.Params) (strategy.Exit, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, AdvancedParams{TrailingPct: 0.12, MaxHoldingDays: 40})
	if err != nil {
		return nil, nil, err
	}
	if cfg.TrailingPct < 0 || cfg.TrailingPct >= 1 {
		return nil, nil, strategy.Invalid("trailing_pct", "must be in [0, 1), got %g", cfg.TrailingPct)
	}
	if cfg.MaxHoldingDays < 0 {
		return nil, nil, strategy.Invalid("max_holding_days", "must be >= 0, got %d", cfg.MaxHoldingDays)
	}
	if cfg.LockProfitAfterRR < 0 {
		return nil, nil, strategy.Invalid("lock_profit_after_rr", "must be >= 0, got %g", cfg.LockProfitAfterRR)
	}
	return &Advanced{params: cfg}, resolved, nil
}

func (x *Advanced) Evaluate(pos strategy.Position, bar market.Bar) strategy.ExitDecision {
	price := bar.Close

	if pos.StopLoss > 0 && price <= pos.StopLoss {
		return exitAt(strategy.ReasonStopLoss, price)
	}
	if x.params.TrailingPct > 0 && price <= highWater(pos, bar)*(1-x.params.TrailingPct) {
		return exitAt(strategy.ReasonTrailingStop, price)
	}
	if pos.TargetPrice > 0 && price >= pos.TargetPrice {
		return exitAt(strategy.ReasonTakeProfit, price)
	}
	if x.params.MaxHoldingDays > 0 && pos.HoldingDays(bar.Date) >= x.params.MaxHoldingDays {
		return exitAt(strategy.ReasonTimeStop, price)
	}

	d := strategy.Hold
	if x.params.LockProfitAfterRR > 0 && pos.StopLoss > 0 && pos.StopLoss < pos.EntryPrice {
		initial := pos.InitialStop
		if initial == 0 {
			initial = pos.StopLoss
		}
		risk := pos.EntryPrice - initial
		if risk > 0 && price-pos.EntryPrice >= risk*x.params.LockProfitAfterRR {
			d.RaiseStop = pos.EntryPrice
		}
	}
	return d
}
