package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rustyeddy/quant/backtest"
)

type runModel struct {
	RunID          string    `gorm:"primaryKey;size:26"`
	Name           string    `gorm:"not null"`
	Created        time.Time `gorm:"index;not null"`
	StartDate      time.Time `gorm:"not null"`
	EndDate        time.Time `gorm:"not null"`
	InitialCapital float64   `gorm:"type:decimal(20,4);not null"`
	FinalEquity    float64   `gorm:"type:decimal(20,4);not null"`
	Trades         int       `gorm:"not null"`
	Skipped        int       `gorm:"not null"`
	Config         string    `gorm:"type:text;not null"`
}

func (runModel) TableName() string { return "runs" }

type tradeModel struct {
	RunID       string    `gorm:"primaryKey;size:26"`
	Seq         int       `gorm:"primaryKey"`
	Symbol      string    `gorm:"index;not null"`
	EntryDate   time.Time `gorm:"not null"`
	EntryPrice  float64   `gorm:"not null"`
	ExitDate    time.Time `gorm:"not null"`
	ExitPrice   float64   `gorm:"not null"`
	Quantity    int64     `gorm:"not null"`
	PnL         float64   `gorm:"column:pnl;not null"`
	Commission  float64   `gorm:"not null"`
	ReturnPct   float64   `gorm:"not null"`
	HoldingDays int       `gorm:"not null"`
	ExitReason  string    `gorm:"not null"`
}

func (tradeModel) TableName() string { return "trades" }

type equityModel struct {
	RunID       string    `gorm:"primaryKey;size:26"`
	Date        time.Time `gorm:"primaryKey"`
	Cash        float64   `gorm:"not null"`
	Equity      float64   `gorm:"not null"`
	Drawdown    float64   `gorm:"not null"`
	DailyReturn float64   `gorm:"not null"`
	Positions   int       `gorm:"not null"`
}

func (equityModel) TableName() string { return "equity" }

type metricModel struct {
	RunID string `gorm:"primaryKey;size:26"`
	Name  string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (metricModel) TableName() string { return "metrics" }

// Postgres is a RunStore on a shared Postgres database.
type Postgres struct {
	db *gorm.DB
}

var _ RunStore = (*Postgres)(nil)

// NewPostgres connects with dsn and migrates the run tables.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: connect postgres: %w", err)
	}
	return OpenPostgres(db)
}

// OpenPostgres wraps an existing connection.
func OpenPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&runModel{}, &tradeModel{}, &equityModel{}, &metricModel{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) RecordRun(ctx context.Context, name string, res *backtest.Result) (string, error) {
	r, err := flatten(name, res)
	if err != nil {
		return "", err
	}
	run, trades, equity, metrics, err := toModels(r)
	if err != nil {
		return "", err
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("journal: insert run: %w", err)
		}
		if len(trades) > 0 {
			if err := tx.CreateInBatches(trades, 500).Error; err != nil {
				return fmt.Errorf("journal: insert trades: %w", err)
			}
		}
		if len(equity) > 0 {
			if err := tx.CreateInBatches(equity, 500).Error; err != nil {
				return fmt.Errorf("journal: insert equity: %w", err)
			}
		}
		if err := tx.Create(&metrics).Error; err != nil {
			return fmt.Errorf("journal: insert metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return run.RunID, nil
}

func (p *Postgres) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var m runModel
	err := p.db.WithContext(ctx).First(&m, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, err
	}
	return m.record(), nil
}

func (p *Postgres) ListRuns(ctx context.Context) ([]RunRecord, error) {
	var ms []runModel
	if err := p.db.WithContext(ctx).Order("created ASC, run_id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]RunRecord, len(ms))
	for i, m := range ms {
		out[i] = m.record()
	}
	return out, nil
}

func (p *Postgres) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	var ms []tradeModel
	if err := p.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]TradeRecord, len(ms))
	for i, m := range ms {
		out[i] = TradeRecord(m)
	}
	return out, nil
}

func (p *Postgres) ListEquity(ctx context.Context, runID string) ([]EquityRecord, error) {
	var ms []equityModel
	if err := p.db.WithContext(ctx).Where("run_id = ?", runID).Order("date ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]EquityRecord, len(ms))
	for i, m := range ms {
		out[i] = EquityRecord(m)
	}
	return out, nil
}

func (p *Postgres) ListMetrics(ctx context.Context, runID string) ([]MetricRecord, error) {
	var ms []metricModel
	if err := p.db.WithContext(ctx).Where("run_id = ?", runID).Find(&ms).Error; err != nil {
		return nil, err
	}
	byName := map[string]MetricRecord{}
	for _, m := range ms {
		v, err := decodeValue(m.Value)
		if err != nil {
			return nil, err
		}
		byName[m.Name] = MetricRecord{RunID: m.RunID, Name: m.Name, Value: v}
	}
	return orderMetrics(byName), nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (m runModel) record() RunRecord {
	return RunRecord{
		RunID:          m.RunID,
		Name:           m.Name,
		Created:        m.Created,
		Start:          m.StartDate,
		End:            m.EndDate,
		InitialCapital: m.InitialCapital,
		FinalEquity:    m.FinalEquity,
		Trades:         m.Trades,
		Skipped:        m.Skipped,
		Config:         []byte(m.Config),
	}
}

func toModels(r rows) (runModel, []tradeModel, []equityModel, []metricModel, error) {
	run := runModel{
		RunID:          r.run.RunID,
		Name:           r.run.Name,
		Created:        r.run.Created,
		StartDate:      r.run.Start,
		EndDate:        r.run.End,
		InitialCapital: r.run.InitialCapital,
		FinalEquity:    r.run.FinalEquity,
		Trades:         r.run.Trades,
		Skipped:        r.run.Skipped,
		Config:         string(r.run.Config),
	}
	trades := make([]tradeModel, len(r.trades))
	for i, t := range r.trades {
		trades[i] = tradeModel(t)
	}
	equity := make([]equityModel, len(r.equity))
	for i, e := range r.equity {
		equity[i] = equityModel(e)
	}
	metrics := make([]metricModel, len(r.metrics))
	for i, m := range r.metrics {
		v, err := encodeValue(m.Value)
		if err != nil {
			return runModel{}, nil, nil, nil, err
		}
		metrics[i] = metricModel{RunID: m.RunID, Name: m.Name, Value: v}
	}
	return run, trades, equity, metrics, nil
}
