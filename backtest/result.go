package backtest

import (
	"time"

	"github.com/rustyeddy/quant/performance"
	"github.com/rustyeddy/quant/strategy"
)

// Trade is a closed round trip.
type Trade struct {
	Symbol      string              `json:"symbol"`
	EntryDate   time.Time           `json:"entry_date"`
	EntryPrice  float64             `json:"entry_price"`
	ExitDate    time.Time           `json:"exit_date"`
	ExitPrice   float64             `json:"exit_price"`
	Quantity    int64               `json:"quantity"`
	PnL         float64             `json:"pnl"`
	Commission  float64             `json:"commission"`
	ReturnPct   float64             `json:"return_pct"`
	HoldingDays int                 `json:"holding_days"`
	ExitReason  strategy.ExitReason `json:"exit_reason"`
}

// EquityPoint is the portfolio marked to market at one day's close.
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Cash        float64   `json:"cash"`
	MarketValue float64   `json:"market_value"`
	Equity      float64   `json:"equity"`
	Peak        float64   `json:"peak"`
	Drawdown    float64   `json:"drawdown"`
	DailyReturn float64   `json:"daily_return"`
	Positions   int       `json:"positions"`
}

// Result is everything one run produced. It is well formed even when the
// strategy never traded.
type Result struct {
	Strategy strategy.Config     `json:"strategy"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Capital  float64             `json:"initial_capital"`
	Universe []string            `json:"universe"`
	Equity   []EquityPoint       `json:"equity"`
	Trades   []Trade             `json:"trades"`
	Open     []strategy.Position `json:"open,omitempty"`
	Metrics  performance.Metrics `json:"metrics"`
	// Skipped counts signals dropped for lack of cash or a zero quantity.
	Skipped int `json:"skipped"`
}

// FinalEquity is the last marked equity, or 0 when no day was simulated.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}

func (r *Result) analyze() {
	points := make([]performance.Point, len(r.Equity))
	for i, e := range r.Equity {
		points[i] = performance.Point{Date: e.Date, Equity: e.Equity}
	}
	trades := make([]performance.ClosedTrade, len(r.Trades))
	for i, t := range r.Trades {
		trades[i] = performance.ClosedTrade{EntryDate: t.EntryDate, ExitDate: t.ExitDate, PnL: t.PnL}
	}
	r.Metrics = performance.Analyze(points, trades)
}
