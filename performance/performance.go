// Package performance computes risk and return metrics from an equity
// curve and a list of closed trades. Degenerate inputs never fail; metrics
// that cannot be computed are reported as null Values.
package performance

import (
	"math"
	"time"
)

const tradingDaysPerYear = 252

// Point is one equity observation.
type Point struct {
	Date   time.Time
	Equity float64
}

// ClosedTrade is the part of a round trip the metrics need. PnL is net of
// costs.
type ClosedTrade struct {
	EntryDate time.Time
	ExitDate  time.Time
	PnL       float64
}

type Metrics struct {
	TotalReturn    Value `json:"total_return"`
	CAGR           Value `json:"cagr"`
	Volatility     Value `json:"volatility"`
	Sharpe         Value `json:"sharpe"`
	MaxDrawdown    Value `json:"max_drawdown"`
	ProfitFactor   Value `json:"profit_factor"`
	WinRate        Value `json:"win_rate"`
	AvgGain        Value `json:"avg_gain"`
	AvgLoss        Value `json:"avg_loss"`
	AvgHoldingDays Value `json:"avg_holding_days"`
	NetProfit      Value `json:"net_profit"`
	GrossProfit    Value `json:"gross_profit"`
	GrossLoss      Value `json:"gross_loss"`
	Trades         int   `json:"trades"`
	Wins           int   `json:"wins"`
	Losses         int   `json:"losses"`
	Days           int   `json:"days"`
}

// Analyze computes Metrics. Equity points must be in date order.
func Analyze(equity []Point, trades []ClosedTrade) Metrics {
	m := Metrics{Days: len(equity)}
	analyzeEquity(&m, equity)
	analyzeTrades(&m, trades)
	return m
}

func analyzeEquity(m *Metrics, equity []Point) {
	if len(equity) == 0 {
		return
	}
	first, last := equity[0], equity[len(equity)-1]

	if first.Equity > 0 {
		ratio := last.Equity / first.Equity
		m.TotalReturn = Defined(ratio - 1)
		elapsed := last.Date.Sub(first.Date).Hours() / 24
		if elapsed > 0 && ratio > 0 {
			m.CAGR = Defined(math.Pow(ratio, 365/elapsed) - 1)
		}
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if prev := equity[i-1].Equity; prev != 0 {
			returns = append(returns, equity[i].Equity/prev-1)
		}
	}
	if mean, sd, ok := meanStdev(returns); ok {
		m.Volatility = Defined(sd * math.Sqrt(tradingDaysPerYear))
		if sd > 0 {
			m.Sharpe = Defined(mean / sd * math.Sqrt(tradingDaysPerYear))
		}
	}

	peak, worst := math.Inf(-1), 0.0
	for _, p := range equity {
		peak = math.Max(peak, p.Equity)
		if peak > 0 {
			worst = math.Min(worst, (p.Equity-peak)/peak)
		}
	}
	m.MaxDrawdown = Defined(worst)
}

// meanStdev returns the mean and sample standard deviation. It needs at
// least two values.
func meanStdev(xs []float64) (mean, sd float64, ok bool) {
	if len(xs) < 2 {
		return 0, 0, false
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1)), true
}

func analyzeTrades(m *Metrics, trades []ClosedTrade) {
	m.Trades = len(trades)
	m.WinRate = Defined(0)
	m.NetProfit = Defined(0)
	m.GrossProfit = Defined(0)
	m.GrossLoss = Defined(0)
	if len(trades) == 0 {
		return
	}

	var gp, gl, net, lossSum, days float64
	for _, t := range trades {
		net += t.PnL
		switch {
		case t.PnL > 0:
			m.Wins++
			gp += t.PnL
		case t.PnL < 0:
			m.Losses++
			gl -= t.PnL
			lossSum += t.PnL
		}
		days += t.ExitDate.Sub(t.EntryDate).Hours() / 24
	}

	n := float64(len(trades))
	m.NetProfit = Defined(net)
	m.GrossProfit = Defined(gp)
	m.GrossLoss = Defined(gl)
	m.WinRate = Defined(float64(m.Wins) / n)
	m.AvgHoldingDays = Defined(days / n)

	switch {
	case gl > 0:
		m.ProfitFactor = Defined(gp / gl)
	case gp > 0:
		m.ProfitFactor = Inf()
	}
	if m.Wins > 0 {
		m.AvgGain = Defined(gp / float64(m.Wins))
	}
	if m.Losses > 0 {
		m.AvgLoss = Defined(lossSum / float64(m.Losses))
	}
}
