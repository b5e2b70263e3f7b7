package journal

import (
	"time"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/performance"
	"github.com/rustyeddy/quant/strategy"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func sampleResult() *backtest.Result {
	return &backtest.Result{
		Strategy: strategy.Config{
			Name:      "buy_hold_time",
			Selection: strategy.LayerConfig{Name: "universe", Params: strategy.Params{"min_days": 1}},
			Entry:     strategy.LayerConfig{Name: "buy_hold", Params: strategy.Params{"stop_loss_pct": 0.1}},
			Exit:      strategy.LayerConfig{Name: "time", Params: strategy.Params{"max_holding_days": 2}},
			Execution: strategy.LayerConfig{Name: "close", Params: strategy.Params{}},
		},
		Start:    day0,
		End:      day0.AddDate(0, 0, 2),
		Capital:  1000,
		Universe: []string{"AAA"},
		Equity: []backtest.EquityPoint{
			{Date: day0, Cash: 0, MarketValue: 1000, Equity: 1000, Peak: 1000, Positions: 1},
			{Date: day0.AddDate(0, 0, 1), Cash: 0, MarketValue: 950, Equity: 950, Peak: 1000, Drawdown: -0.05, DailyReturn: -0.05, Positions: 1},
			{Date: day0.AddDate(0, 0, 2), Cash: 1100, Equity: 1100, Peak: 1100, DailyReturn: 1100.0/950 - 1},
		},
		Trades: []backtest.Trade{{
			Symbol:      "AAA",
			EntryDate:   day0,
			EntryPrice:  10,
			ExitDate:    day0.AddDate(0, 0, 2),
			ExitPrice:   11,
			Quantity:    100,
			PnL:         100,
			ReturnPct:   0.1,
			HoldingDays: 2,
			ExitReason:  strategy.ReasonTimeStop,
		}},
		Metrics: performance.Metrics{
			TotalReturn:  performance.Defined(0.1),
			MaxDrawdown:  performance.Defined(-0.05),
			ProfitFactor: performance.Inf(),
			WinRate:      performance.Defined(1),
			Trades:       1,
			Wins:         1,
			Days:         2,
		},
	}
}
