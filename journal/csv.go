package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/quant/backtest"
)

// Files written by Export.
const (
	EquityFile     = "equity.csv"
	TradesFile     = "trades.csv"
	MetricsFile    = "metrics.csv"
	ConfigYAMLFile = "strategy_config.yaml"
	ConfigJSONFile = "strategy_config.json"
)

var (
	equityHeader  = []string{"date", "equity", "drawdown", "daily_return"}
	tradesHeader  = []string{"symbol", "entry_date", "entry_price", "exit_date", "exit_price", "return_pct", "holding_days", "exit_reason"}
	metricsHeader = []string{"metric", "value"}
)

// Export writes the run's tables and configuration snapshot into dir,
// creating it if needed.
func Export(dir string, res *backtest.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{EquityFile, func(w io.Writer) error { return WriteEquity(w, res.Equity) }},
		{TradesFile, func(w io.Writer) error { return WriteTrades(w, res.Trades) }},
		{MetricsFile, func(w io.Writer) error { return WriteMetrics(w, res) }},
		{ConfigYAMLFile, func(w io.Writer) error { return writeSnapshot(w, res.Strategy.YAML) }},
		{ConfigJSONFile, func(w io.Writer) error { return writeSnapshot(w, res.Strategy.JSON) }},
	}
	for _, wr := range writers {
		if err := writeFile(filepath.Join(dir, wr.name), wr.write); err != nil {
			return fmt.Errorf("journal: %s: %w", wr.name, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeSnapshot(w io.Writer, encode func() ([]byte, error)) error {
	b, err := encode()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func WriteEquity(w io.Writer, points []backtest.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(equityHeader); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{
			p.Date.Format(time.DateOnly),
			f(p.Equity),
			f(p.Drawdown),
			f(p.DailyReturn),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.Symbol,
			t.EntryDate.Format(time.DateOnly),
			f(t.EntryPrice),
			t.ExitDate.Format(time.DateOnly),
			f(t.ExitPrice),
			f(t.ReturnPct),
			strconv.Itoa(t.HoldingDays),
			string(t.ExitReason),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetrics writes one row per metric. Undefined metrics are left empty
// and infinite ones are written as "inf".
func WriteMetrics(w io.Writer, res *backtest.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metricsHeader); err != nil {
		return err
	}
	for _, m := range res.Metrics.Table() {
		v := ""
		if !m.Value.IsNull() {
			v = m.Value.String()
		}
		if err := cw.Write([]string{m.Name, v}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
