package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/quant/backtest"
)

// SQLite is a RunStore backed by a single database file.
type SQLite struct {
	db *sql.DB
}

var _ RunStore = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordRun stores a result in one transaction and returns its run ID.
func (j *SQLite) RecordRun(ctx context.Context, name string, res *backtest.Result) (string, error) {
	r, err := flatten(name, res)
	if err != nil {
		return "", err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, name, created, start_date, end_date, initial_capital, final_equity, trades, skipped, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.run.RunID, r.run.Name, r.run.Created, r.run.Start, r.run.End,
		r.run.InitialCapital, r.run.FinalEquity, r.run.Trades, r.run.Skipped, string(r.run.Config),
	)
	if err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}

	for _, t := range r.trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades
			(run_id, seq, symbol, entry_date, entry_price, exit_date, exit_price, quantity, pnl, commission, return_pct, holding_days, exit_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.RunID, t.Seq, t.Symbol, t.EntryDate, t.EntryPrice, t.ExitDate, t.ExitPrice,
			t.Quantity, t.PnL, t.Commission, t.ReturnPct, t.HoldingDays, t.ExitReason,
		)
		if err != nil {
			return "", fmt.Errorf("journal: insert trade: %w", err)
		}
	}

	for _, e := range r.equity {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equity
			(run_id, date, cash, equity, drawdown, daily_return, positions)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, e.Date, e.Cash, e.Equity, e.Drawdown, e.DailyReturn, e.Positions,
		)
		if err != nil {
			return "", fmt.Errorf("journal: insert equity: %w", err)
		}
	}

	for _, m := range r.metrics {
		v, err := encodeValue(m.Value)
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics (run_id, name, value) VALUES (?, ?, ?)`, m.RunID, m.Name, v); err != nil {
			return "", fmt.Errorf("journal: insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return r.run.RunID, nil
}

const runColumns = `run_id, name, created, start_date, end_date, initial_capital, final_equity, trades, skipped, config`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec RunRecord
		cfg string
	)
	err := s.Scan(&rec.RunID, &rec.Name, &rec.Created, &rec.Start, &rec.End,
		&rec.InitialCapital, &rec.FinalEquity, &rec.Trades, &rec.Skipped, &cfg)
	rec.Config = []byte(cfg)
	return rec, err
}

// GetRun returns the header of one run.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return rec, err
}

// ListRuns returns every stored run, oldest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created ASC, run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, symbol, entry_date, entry_price, exit_date, exit_price, quantity, pnl, commission, return_pct, holding_days, exit_reason
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.RunID, &t.Seq, &t.Symbol, &t.EntryDate, &t.EntryPrice, &t.ExitDate, &t.ExitPrice,
			&t.Quantity, &t.PnL, &t.Commission, &t.ReturnPct, &t.HoldingDays, &t.ExitReason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquityRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, date, cash, equity, drawdown, daily_return, positions
		FROM equity
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var e EquityRecord
		if err := rows.Scan(&e.RunID, &e.Date, &e.Cash, &e.Equity, &e.Drawdown, &e.DailyReturn, &e.Positions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListMetrics returns the run's metrics in their canonical table order.
func (j *SQLite) ListMetrics(ctx context.Context, runID string) ([]MetricRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT name, value FROM metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]MetricRecord{}
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		byName[name] = MetricRecord{RunID: runID, Name: name, Value: v}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderMetrics(byName), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
