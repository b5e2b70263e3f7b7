// Package entry provides the entry-signal layer variants. Every variant
// evaluates only the last bar of the history it is given.
package entry

import (
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// Register adds every entry variant to r.
func Register(r *strategy.Registry) {
	r.RegisterEntry("b1", NewB1, "b1_entry")
	r.RegisterEntry("b1_tplus1", NewB1TPlus1, "tplus1_entry")
	r.RegisterEntry("ema_cross", NewEMACross, "ema-cross", "emacross")
	r.RegisterEntry("buy_hold", NewBuyHold, "buy_and_hold")
}

// levels derives stop and target from the close; a zero percentage leaves
// the level unset.
func levels(close, stopPct, targetPct float64) (stop, target float64) {
	if stopPct > 0 {
		stop = close * (1 - stopPct)
	}
	if targetPct > 0 {
		target = close * (1 + targetPct)
	}
	return stop, target
}

func signal(symbol string, bar market.Bar, stop, target float64, meta map[string]string) strategy.Signal {
	return strategy.Signal{
		Symbol:      symbol,
		Date:        bar.Date,
		Price:       bar.Close,
		StopLoss:    stop,
		TargetPrice: target,
		Metadata:    meta,
	}
}

func checkPct(key string, v float64) error {
	if v < 0 || v >= 1 {
		return strategy.Invalid(key, "must be in [0, 1), got %g", v)
	}
	return nil
}
