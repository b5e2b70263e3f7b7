// Package execution provides the fill-price layer variants and the cost
// model applied to every fill.
package execution

import (
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// Register adds every execution variant to r.
func Register(r *strategy.Registry) {
	r.RegisterExecution("close", NewClose, "same_day_close")
	r.RegisterExecution("next_open", NewNextOpen, "tplus1", "t+1", "t+1_open")
	r.RegisterExecution("vwap", NewVWAP, "vwap_approx")
}

type noParams struct{}

// Close fills at the signal day's close.
type Close struct{}

func NewClose(p strategy.Params) (strategy.Execution, strategy.Params, error) {
	_, resolved, err := strategy.Bind(p, noParams{})
	if err != nil {
		return nil, nil, err
	}
	return Close{}, resolved, nil
}

func (Close) Fill(sig strategy.Signal, bars market.Series) (strategy.Fill, bool) {
	bar, err := bars.On(sig.Date)
	if err != nil {
		return strategy.Fill{}, false
	}
	return strategy.Fill{Price: bar.Close, Date: bar.Date}, true
}

// NextOpen fills at the open of the symbol's first bar after the signal
// date (T+1 execution).
type NextOpen struct{}

func NewNextOpen(p strategy.Params) (strategy.Execution, strategy.Params, error) {
	_, resolved, err := strategy.Bind(p, noParams{})
	if err != nil {
		return nil, nil, err
	}
	return NextOpen{}, resolved, nil
}

func (NextOpen) Fill(sig strategy.Signal, bars market.Series) (strategy.Fill, bool) {
	i, ok := bars.Index(sig.Date)
	if ok {
		i++
	}
	if i >= len(bars) {
		return strategy.Fill{}, false
	}
	return strategy.Fill{Price: bars[i].Open, Date: bars[i].Date}, true
}

// VWAP approximates the session's volume-weighted price as (open+close)/2.
type VWAP struct{}

func NewVWAP(p strategy.Params) (strategy.Execution, strategy.Params, error) {
	_, resolved, err := strategy.Bind(p, noParams{})
	if err != nil {
		return nil, nil, err
	}
	return VWAP{}, resolved, nil
}

func (VWAP) Fill(sig strategy.Signal, bars market.Series) (strategy.Fill, bool) {
	bar, err := bars.On(sig.Date)
	if err != nil {
		return strategy.Fill{}, false
	}
	return strategy.Fill{Price: (bar.Open + bar.Close) / 2, Date: bar.Date}, true
}
