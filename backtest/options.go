package backtest

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quant/strategy/execution"
)

const DefaultLookbackDays = 180

// Refresh is the number of trading days between Selection recomputations.
// Zero and one both mean every day; RefreshOnce selects on the first day
// only.
type Refresh int

const (
	RefreshDaily  Refresh = 1
	RefreshWeekly Refresh = 5
	RefreshOnce   Refresh = -1
)

// ParseRefresh accepts daily, weekly, once, or a positive day count.
func ParseRefresh(s string) (Refresh, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily":
		return RefreshDaily, nil
	case "weekly":
		return RefreshWeekly, nil
	case "once":
		return RefreshOnce, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid universe refresh %q: want daily, weekly, once or a positive number of days", s)
	}
	return Refresh(n), nil
}

func (r Refresh) String() string {
	switch {
	case r == RefreshOnce:
		return "once"
	case r <= RefreshDaily:
		return "daily"
	case r == RefreshWeekly:
		return "weekly"
	}
	return strconv.Itoa(int(r))
}

func (r Refresh) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Refresh) UnmarshalText(b []byte) error {
	v, err := ParseRefresh(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// due reports whether selection must be recomputed on trading day i given
// the day it last ran (-1 for never).
func (r Refresh) due(i, last int) bool {
	if last < 0 {
		return true
	}
	if r == RefreshOnce {
		return false
	}
	every := int(r)
	if every < 1 {
		every = 1
	}
	return i-last >= every
}

// Options controls a single backtest run.
type Options struct {
	Start          time.Time
	End            time.Time
	InitialCapital float64
	MaxPositions   int
	// UniverseSize caps the number of symbols taken from the pool; 0 means
	// no cap.
	UniverseSize int
	Pool         string
	Costs        execution.Costs
	// LookbackDays of history preloaded before Start; 0 means
	// DefaultLookbackDays.
	LookbackDays int
	Refresh      Refresh
	// CloseAtEnd liquidates open positions on the last day.
	CloseAtEnd bool
	Logger     *slog.Logger
}

// DefaultOptions returns a one million capital, ten position, cost-free run
// over [start, end].
func DefaultOptions(start, end time.Time) Options {
	return Options{
		Start:          start,
		End:            end,
		InitialCapital: 1_000_000,
		MaxPositions:   10,
		LookbackDays:   DefaultLookbackDays,
		Refresh:        RefreshDaily,
	}
}

func (o Options) Validate() error {
	if o.Start.IsZero() || o.End.IsZero() {
		return fmt.Errorf("backtest: start and end dates are required")
	}
	if o.End.Before(o.Start) {
		return fmt.Errorf("backtest: end %s is before start %s", o.End.Format(time.DateOnly), o.Start.Format(time.DateOnly))
	}
	if o.InitialCapital <= 0 {
		return fmt.Errorf("backtest: initial capital must be > 0, got %g", o.InitialCapital)
	}
	if o.MaxPositions < 1 {
		return fmt.Errorf("backtest: max positions must be >= 1, got %d", o.MaxPositions)
	}
	if o.UniverseSize < 0 {
		return fmt.Errorf("backtest: universe size must be >= 0, got %d", o.UniverseSize)
	}
	if o.LookbackDays < 0 {
		return fmt.Errorf("backtest: lookback days must be >= 0, got %d", o.LookbackDays)
	}
	if err := o.Costs.Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	return nil
}

func (o Options) lookback() int {
	if o.LookbackDays == 0 {
		return DefaultLookbackDays
	}
	return o.LookbackDays
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
