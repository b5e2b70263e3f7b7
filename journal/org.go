package journal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/performance"
)

// RunSummary is everything the org report shows for one run.
type RunSummary struct {
	Run     RunRecord
	Metrics []MetricRecord
	Trades  []TradeRecord
	Notes   []string
}

// Metric returns the named metric, null when absent.
func (s RunSummary) Metric(name string) performance.Value {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m.Value
		}
	}
	return performance.Null()
}

// LoadSummary reads a stored run back from a RunStore.
func LoadSummary(ctx context.Context, store RunStore, runID string) (RunSummary, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	metrics, err := store.ListMetrics(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	trades, err := store.ListTrades(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{Run: run, Metrics: metrics, Trades: trades}, nil
}

// Summarize builds a summary directly from a result without storing it.
func Summarize(name string, res *backtest.Result) (RunSummary, error) {
	r, err := flatten(name, res)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{Run: r.run, Metrics: r.metrics, Trades: r.trades}, nil
}

var orgFuncs = template.FuncMap{
	"date":   func(t time.Time) string { return t.Format(time.DateOnly) },
	"pct":    pct,
	"num":    func(v performance.Value) string { return v.Format(2) },
	"count":  func(v performance.Value) string { return v.Format(0) },
	"trade":  FormatTradeOrg,
	"orTime": orTime,
}

func orTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders s as an org-mode entry.
func WriteOrg(w io.Writer, s RunSummary) error {
	if err := orgTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("journal: org report: %w", err)
	}
	return nil
}

func pct(v performance.Value) string {
	x, ok := v.Float()
	if !ok || v.IsInf() {
		return v.String()
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

const RunOrgTemplate = `* BACKTEST: {{.Run.Name}}
:PROPERTIES:
:RUN_ID:      {{if .Run.RunID}}{{.Run.RunID}}{{else}}(run-id?){{end}}
:START_DATE:  {{date .Run.Start}}
:END_DATE:    {{date .Run.End}}
:START_BAL:   {{printf "%.2f" .Run.InitialCapital}}
:END_BAL:     {{printf "%.2f" .Run.FinalEquity}}
:TRADES:      {{.Run.Trades}}
:SKIPPED:     {{.Run.Skipped}}
:CREATED:     [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Configuration
#+begin_src yaml
{{printf "%s" .Run.Config}}#+end_src

** Performance Summary
- Total Return:     *{{pct (.Metric "total_return")}}*
- CAGR:             *{{pct (.Metric "cagr")}}*
- Sharpe:           *{{num (.Metric "sharpe")}}*
- Max Drawdown:     *{{pct (.Metric "max_drawdown")}}*
- Win Rate:         *{{pct (.Metric "win_rate")}}*
- Profit Factor:    *{{num (.Metric "profit_factor")}}*
- Avg Holding Days: *{{num (.Metric "avg_holding_days")}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{count (.Metric "wins")}} |
| Losses  | {{count (.Metric "losses")}} |
| Total   | {{.Run.Trades}} |
{{- if .Trades }}

** Trades
{{- range .Trades }}
{{ trade . }}
{{- end }}
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

// FormatTradeOrg renders one closed trade as an org heading with its facts
// in a PROPERTIES drawer.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*** %s %s -> %s (%s)\n", t.Symbol, t.EntryDate.Format(time.DateOnly), t.ExitDate.Format(time.DateOnly), t.ExitReason)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":SEQ: %d\n", t.Seq)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.4f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.4f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":PNL: %.2f\n", t.PnL)
	fmt.Fprintf(&b, ":RETURN_PCT: %.2f\n", t.ReturnPct*100)
	fmt.Fprintf(&b, ":HOLDING_DAYS: %d\n", t.HoldingDays)
	b.WriteString(":END:")
	return b.String()
}
