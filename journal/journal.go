// Package journal persists backtest runs: CSV tables for spreadsheets, a
// SQLite or Postgres run store for later querying, and an org-mode summary.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/internal/id"
	"github.com/rustyeddy/quant/performance"
)

var ErrRunNotFound = errors.New("journal: run not found")

// RunRecord is the header row of one stored run.
type RunRecord struct {
	RunID          string
	Name           string
	Created        time.Time
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64
	Trades         int
	Skipped        int
	// Config is the strategy configuration snapshot as YAML.
	Config []byte
}

type TradeRecord struct {
	RunID       string
	Seq         int
	Symbol      string
	EntryDate   time.Time
	EntryPrice  float64
	ExitDate    time.Time
	ExitPrice   float64
	Quantity    int64
	PnL         float64
	Commission  float64
	ReturnPct   float64
	HoldingDays int
	ExitReason  string
}

type EquityRecord struct {
	RunID       string
	Date        time.Time
	Cash        float64
	Equity      float64
	Drawdown    float64
	DailyReturn float64
	Positions   int
}

// MetricRecord stores a metric value in its JSON form so null and infinite
// values survive the database.
type MetricRecord struct {
	RunID string
	Name  string
	Value performance.Value
}

// RunStore is implemented by the SQLite and Postgres journals.
type RunStore interface {
	RecordRun(ctx context.Context, name string, res *backtest.Result) (string, error)
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	ListTrades(ctx context.Context, runID string) ([]TradeRecord, error)
	ListEquity(ctx context.Context, runID string) ([]EquityRecord, error)
	ListMetrics(ctx context.Context, runID string) ([]MetricRecord, error)
	Close() error
}

// rows is one run flattened for storage.
type rows struct {
	run     RunRecord
	trades  []TradeRecord
	equity  []EquityRecord
	metrics []MetricRecord
}

func flatten(name string, res *backtest.Result) (rows, error) {
	if res == nil {
		return rows{}, errors.New("journal: nil result")
	}
	runID, err := id.New()
	if err != nil {
		return rows{}, fmt.Errorf("journal: run id: %w", err)
	}
	cfg, err := res.Strategy.YAML()
	if err != nil {
		return rows{}, fmt.Errorf("journal: strategy snapshot: %w", err)
	}
	if name == "" {
		name = res.Strategy.Name
	}

	out := rows{run: RunRecord{
		RunID:          runID,
		Name:           name,
		Created:        time.Now().UTC(),
		Start:          res.Start,
		End:            res.End,
		InitialCapital: res.Capital,
		FinalEquity:    res.FinalEquity(),
		Trades:         len(res.Trades),
		Skipped:        res.Skipped,
		Config:         cfg,
	}}
	for i, t := range res.Trades {
		out.trades = append(out.trades, TradeRecord{
			RunID:       runID,
			Seq:         i + 1,
			Symbol:      t.Symbol,
			EntryDate:   t.EntryDate,
			EntryPrice:  t.EntryPrice,
			ExitDate:    t.ExitDate,
			ExitPrice:   t.ExitPrice,
			Quantity:    t.Quantity,
			PnL:         t.PnL,
			Commission:  t.Commission,
			ReturnPct:   t.ReturnPct,
			HoldingDays: t.HoldingDays,
			ExitReason:  string(t.ExitReason),
		})
	}
	for _, e := range res.Equity {
		out.equity = append(out.equity, EquityRecord{
			RunID:       runID,
			Date:        e.Date,
			Cash:        e.Cash,
			Equity:      e.Equity,
			Drawdown:    e.Drawdown,
			DailyReturn: e.DailyReturn,
			Positions:   e.Positions,
		})
	}
	for _, m := range res.Metrics.Table() {
		out.metrics = append(out.metrics, MetricRecord{RunID: runID, Name: m.Name, Value: m.Value})
	}
	return out, nil
}

func encodeValue(v performance.Value) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeValue(s string) (performance.Value, error) {
	var v performance.Value
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func orderMetrics(byName map[string]MetricRecord) []MetricRecord {
	out := make([]MetricRecord, 0, len(byName))
	for _, name := range performance.Names() {
		if m, ok := byName[name]; ok {
			out = append(out, m)
		}
	}
	return out
}
