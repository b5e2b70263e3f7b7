// Package exit provides the exit-decision layer variants. All of them
// decide on the bar close and never mutate the position they are given.
package exit

import (
	"math"

	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// Register adds every exit variant to r.
func Register(r *strategy.Registry) {
	r.RegisterExit("fixed", NewFixed, "fixed_risk")
	r.RegisterExit("time", NewTime, "time_exit", "time_based")
	r.RegisterExit("trailing", NewTrailing, "trailing_exit", "trailing_stop")
	r.RegisterExit("advanced", NewAdvanced, "advanced_exit")
}

func exitAt(reason strategy.ExitReason, price float64) strategy.ExitDecision {
	return strategy.ExitDecision{Exit: true, Reason: reason, Price: price}
}

func highWater(pos strategy.Position, bar market.Bar) float64 {
	return math.Max(pos.HighWaterMark, bar.Close)
}

type FixedParams struct {
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// Fixed exits at the position's stop or target. When the position carries
// no level, a non-zero percentage derives one from the entry price.
type Fixed struct {
	params FixedParams
}

func NewFixed(p strategy.Params) (strategy.Exit, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, FixedParams{})
	if err != nil {
		return nil, nil, err
	}
	if cfg.StopLossPct < 0 || cfg.StopLossPct >= 1 {
		return nil, nil, strategy.Invalid("stop_loss_pct", "must be in [0, 1), got %g", cfg.StopLossPct)
	}
	if cfg.TakeProfitPct < 0 {
		return nil, nil, strategy.Invalid("take_profit_pct", "must be >= 0, got %g", cfg.TakeProfitPct)
	}
	return &Fixed{params: cfg}, resolved, nil
}

func (x *Fixed) Evaluate(pos strategy.Position, bar market.Bar) strategy.ExitDecision {
	stop, target := pos.StopLoss, pos.TargetPrice
	if stop == 0 && x.params.StopLossPct > 0 {
		stop = pos.EntryPrice * (1 - x.params.StopLossPct)
	}
	if target == 0 && x.params.TakeProfitPct > 0 {
		target = pos.EntryPrice * (1 + x.params.TakeProfitPct)
	}
	price := bar.Close
	if stop > 0 && price <= stop {
		return exitAt(strategy.ReasonStopLoss, price)
	}
	if target > 0 && price >= target {
		return exitAt(strategy.ReasonTakeProfit, price)
	}
	return strategy.Hold
}

type TimeParams struct {
	MaxHoldingDays int `yaml:"max_holding_days"`
}

// Time exits once the position has been held MaxHoldingDays calendar days,
// regardless of price.
type Time struct {
	params TimeParams
}

func NewTime(p strategy.Params) (strategy.Exit, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, TimeParams{MaxHoldingDays: 10})
	if err != nil {
		return nil, nil, err
	}
	if cfg.MaxHoldingDays < 1 {
		return nil, nil, strategy.Invalid("max_holding_days", "must be >= 1, got %d", cfg.MaxHoldingDays)
	}
	return &Time{params: cfg}, resolved, nil
}

func (x *Time) Evaluate(pos strategy.Position, bar market.Bar) strategy.ExitDecision {
	if pos.HoldingDays(bar.Date) >= x.params.MaxHoldingDays {
		return exitAt(strategy.ReasonTimeStop, bar.Close)
	}
	return strategy.Hold
}

type TrailingParams struct {
	TrailingPct float64 `yaml:"trailing_pct"`
}

// Trailing exits when the close retraces TrailingPct from the high-water mark.
type Trailing struct {
	params TrailingParams
}

func NewTrailing(p strategy.Params) (strategy.Exit, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, TrailingParams{TrailingPct: 0.1})
	if err != nil {
		return nil, nil, err
	}
	if cfg.TrailingPct <= 0 || cfg.TrailingPct >= 1 {
		return nil, nil, strategy.Invalid("trailing_pct", "must be in (0, 1), got %g", cfg.TrailingPct)
	}
	return &Trailing{params: cfg}, resolved, nil
}

func (x *Trailing) Evaluate(pos strategy.Position, bar market.Bar) strategy.ExitDecision {
	if bar.Close <= highWater(pos, bar)*(1-x.params.TrailingPct) {
		return exitAt(strategy.ReasonTrailingStop, bar.Close)
	}
	return strategy.Hold
}
