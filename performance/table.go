package performance

// Row is one named metric.
type Row struct {
	Name  string
	Value Value
}

// Table lists every metric in a fixed order, using the JSON field names.
func (m Metrics) Table() []Row {
	return []Row{
		{"total_return", m.TotalReturn},
		{"cagr", m.CAGR},
		{"volatility", m.Volatility},
		{"sharpe", m.Sharpe},
		{"max_drawdown", m.MaxDrawdown},
		{"profit_factor", m.ProfitFactor},
		{"win_rate", m.WinRate},
		{"avg_gain", m.AvgGain},
		{"avg_loss", m.AvgLoss},
		{"avg_holding_days", m.AvgHoldingDays},
		{"net_profit", m.NetProfit},
		{"gross_profit", m.GrossProfit},
		{"gross_loss", m.GrossLoss},
		{"trades", Defined(float64(m.Trades))},
		{"wins", Defined(float64(m.Wins))},
		{"losses", Defined(float64(m.Losses))},
		{"days", Defined(float64(m.Days))},
	}
}

// Names returns the metric names Table and Lookup accept.
func Names() []string {
	rows := Metrics{}.Table()
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

// Lookup returns a metric by name.
func (m Metrics) Lookup(name string) (Value, bool) {
	for _, r := range m.Table() {
		if r.Name == name {
			return r.Value, true
		}
	}
	return Null(), false
}
