// Package backtest runs a composite strategy day by day over historical
// bars and records the resulting trades and equity curve.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// Backtester binds a data provider and a strategy. Each call to Run owns
// its own Portfolio, so one Backtester may run concurrently.
type Backtester struct {
	Provider market.Provider
	Strategy *strategy.Composite
}

func New(p market.Provider, s *strategy.Composite) *Backtester {
	return &Backtester{Provider: p, Strategy: s}
}

// Run is shorthand for New(p, s).Run(ctx, opts).
func Run(ctx context.Context, p market.Provider, s *strategy.Composite, opts Options) (*Result, error) {
	return New(p, s).Run(ctx, opts)
}

// pendingFill is a deferred buy waiting for its fill date's opening session.
type pendingFill struct {
	signal strategy.Signal
	fill   strategy.Fill
}

type session struct {
	opts  Options
	strat *strategy.Composite
	log   *slog.Logger

	universe []string
	history  map[string]market.Series
	calendar []time.Time

	pf         *Portfolio
	pending    []pendingFill
	candidates []strategy.Candidate
	selectedAt int
	lastClose  map[string]float64
	peak       float64

	result *Result
}

// Run validates the options, preloads every universe symbol's history and
// simulates each trading day in [Start, End]. All errors are returned
// before the first day is simulated; nothing in the day loop fails.
func (b *Backtester) Run(ctx context.Context, opts Options) (*Result, error) {
	if b.Provider == nil {
		return nil, fmt.Errorf("backtest: Provider is required")
	}
	if b.Strategy == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Start, opts.End = market.Day(opts.Start), market.Day(opts.End)

	s := &session{
		opts:       opts,
		strat:      b.Strategy,
		log:        opts.logger().With("strategy", b.Strategy.Name()),
		pf:         NewPortfolio(opts.InitialCapital, opts.MaxPositions),
		selectedAt: -1,
		lastClose:  map[string]float64{},
		result: &Result{
			Strategy: b.Strategy.Config(),
			Start:    opts.Start,
			End:      opts.End,
			Capital:  opts.InitialCapital,
			Equity:   []EquityPoint{},
			Trades:   []Trade{},
		},
	}
	if err := s.load(ctx, b.Provider); err != nil {
		return nil, err
	}

	for i, d := range s.calendar {
		s.step(i, d)
	}

	s.result.Open = s.pf.Positions()
	s.result.analyze()
	s.log.Info("backtest complete",
		"days", len(s.calendar),
		"trades", len(s.result.Trades),
		"skipped", s.result.Skipped,
		"final_equity", s.result.FinalEquity())
	return s.result, nil
}

func (s *session) load(ctx context.Context, p market.Provider) error {
	symbols, err := p.Universe(s.opts.Pool, s.opts.Start)
	if err != nil {
		return fmt.Errorf("backtest: universe %q: %w", s.opts.Pool, err)
	}

	seen := map[string]bool{}
	for _, sym := range symbols {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		s.universe = append(s.universe, sym)
		if s.opts.UniverseSize > 0 && len(s.universe) == s.opts.UniverseSize {
			break
		}
	}

	from := s.opts.Start.AddDate(0, 0, -s.opts.lookback())
	s.history = make(map[string]market.Series, len(s.universe))
	for _, sym := range s.universe {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := p.History(sym, from, s.opts.End)
		if err != nil {
			return fmt.Errorf("backtest: history %s: %w", sym, err)
		}
		s.history[sym] = market.Normalize(h).Between(from, s.opts.End)
	}

	s.calendar = market.Calendar(s.history, s.opts.Start, s.opts.End)
	s.result.Universe = append([]string(nil), s.universe...)
	s.log.Debug("history loaded", "symbols", len(s.universe), "days", len(s.calendar))
	return nil
}

// step simulates one trading day: deferred fills at the open, exits, then
// entries, then mark-to-market.
func (s *session) step(i int, d time.Time) {
	bars := make(map[string]market.Bar, len(s.universe))
	for _, sym := range s.universe {
		bar, err := s.history[sym].On(d)
		if err != nil {
			continue
		}
		bars[sym] = bar
		s.lastClose[sym] = bar.Close
	}

	s.openSession(d, bars)
	s.exitPhase(d, bars)
	s.entryPhase(i, d, bars)
	if s.opts.CloseAtEnd && i == len(s.calendar)-1 {
		s.closeAll(d, bars)
	}
	s.mark(d)
}

func (s *session) openSession(d time.Time, bars map[string]market.Bar) {
	var due, keep []pendingFill
	for _, pf := range s.pending {
		if pf.fill.Date.After(d) {
			keep = append(keep, pf)
		} else {
			due = append(due, pf)
		}
	}
	s.pending = keep

	for _, pf := range due {
		sym := pf.signal.Symbol
		if _, ok := bars[sym]; !ok {
			s.log.Debug("deferred fill dropped", "symbol", sym, "date", d.Format(time.DateOnly))
			continue
		}
		// Fills due today share the free slots; later fills keep theirs.
		s.buy(pf.signal, pf.fill, d, s.opts.MaxPositions-s.pf.Len()-len(keep))
	}
}

func (s *session) exitPhase(d time.Time, bars map[string]market.Bar) {
	for _, sym := range s.pf.Symbols() {
		bar, ok := bars[sym]
		if !ok {
			s.log.Debug("data gap, exit skipped", "symbol", sym, "date", d.Format(time.DateOnly))
			continue
		}
		s.pf.update(sym, func(p *strategy.Position) {
			if bar.Close > p.HighWaterMark {
				p.HighWaterMark = bar.Close
			}
		})
		pos, _ := s.pf.Position(sym)

		dec := s.strat.Exit().Evaluate(pos, bar)
		if !dec.Exit {
			if dec.RaiseStop > pos.StopLoss {
				s.pf.update(sym, func(p *strategy.Position) { p.StopLoss = dec.RaiseStop })
			}
			continue
		}

		reason := dec.Reason
		if !reason.Valid() {
			s.log.Warn("exit reason not recognized, recording manual", "symbol", sym, "reason", reason)
			reason = strategy.ReasonManual
		}
		raw := dec.Price
		if raw <= 0 {
			raw = bar.Close
		}
		s.sell(sym, d, raw, reason)
	}
}

func (s *session) sell(sym string, d time.Time, raw float64, reason strategy.ExitReason) {
	tr, err := s.pf.Close(sym, d, s.opts.Costs.Sell(raw), reason, s.opts.Costs)
	if err != nil {
		s.log.Error("close failed", "symbol", sym, "error", err)
		return
	}
	s.result.Trades = append(s.result.Trades, tr)
	s.log.Debug("exit", "symbol", sym, "date", d.Format(time.DateOnly), "reason", reason, "pnl", tr.PnL)
}

func (s *session) freeSlots() int {
	return s.opts.MaxPositions - s.pf.Len() - len(s.pending)
}

func (s *session) isPending(sym string) bool {
	for _, p := range s.pending {
		if p.signal.Symbol == sym {
			return true
		}
	}
	return false
}

func (s *session) snapshot(d time.Time) strategy.Snapshot {
	h := make(map[string]market.Series, len(s.universe))
	for _, sym := range s.universe {
		h[sym] = s.history[sym].Through(d)
	}
	return strategy.Snapshot{Date: d, Universe: append([]string(nil), s.universe...), History: h}
}

func (s *session) entryPhase(i int, d time.Time, bars map[string]market.Bar) {
	if s.opts.Refresh.due(i, s.selectedAt) {
		s.candidates = s.strat.Selection().Select(s.snapshot(d))
		s.selectedAt = i
	}

	for _, c := range s.candidates {
		if s.freeSlots() <= 0 {
			return
		}
		sym := c.Symbol
		if s.pf.Has(sym) || s.isPending(sym) {
			continue
		}
		hist, ok := s.history[sym]
		if !ok {
			continue
		}
		if _, ok := bars[sym]; !ok {
			s.log.Debug("data gap, entry skipped", "symbol", sym, "date", d.Format(time.DateOnly))
			continue
		}

		for _, sig := range s.strat.Entry().Generate(sym, hist.Through(d)) {
			sig.Symbol = sym
			fill, ok := s.strat.Execution().Fill(sig, hist)
			if !ok {
				continue
			}
			if fill.Date.After(d) {
				s.pending = append(s.pending, pendingFill{signal: sig, fill: fill})
			} else {
				s.buy(sig, fill, d, s.freeSlots())
			}
			break
		}
	}
}

func (s *session) buy(sig strategy.Signal, fill strategy.Fill, d time.Time, slots int) {
	price := s.opts.Costs.Buy(fill.Price)
	qty := s.pf.Size(price, slots, s.opts.Costs)
	if qty <= 0 {
		s.result.Skipped++
		s.log.Debug("signal skipped, insufficient cash", "symbol", sig.Symbol, "date", d.Format(time.DateOnly), "price", price)
		return
	}
	pos := strategy.Position{
		Symbol:        sig.Symbol,
		EntryDate:     d,
		EntryPrice:    price,
		Quantity:      qty,
		StopLoss:      sig.StopLoss,
		TargetPrice:   sig.TargetPrice,
		HighWaterMark: fill.Price,
	}
	if err := s.pf.Open(pos, s.opts.Costs); err != nil {
		s.result.Skipped++
		s.log.Debug("signal skipped", "symbol", sig.Symbol, "error", err)
		return
	}
	s.log.Debug("entry", "symbol", sig.Symbol, "date", d.Format(time.DateOnly), "price", price, "qty", qty)
}

func (s *session) closeAll(d time.Time, bars map[string]market.Bar) {
	for _, sym := range s.pf.Symbols() {
		raw := s.lastClose[sym]
		if bar, ok := bars[sym]; ok {
			raw = bar.Close
		}
		s.sell(sym, d, raw, strategy.ReasonManual)
	}
	s.pending = nil
}

func (s *session) mark(d time.Time) {
	mv := s.pf.MarketValue(s.lastClose)
	cash := s.pf.Cash()
	equity := cash.Add(mv).InexactFloat64()

	if len(s.result.Equity) == 0 || equity > s.peak {
		s.peak = equity
	}
	pt := EquityPoint{
		Date:        d,
		Cash:        cash.InexactFloat64(),
		MarketValue: mv.InexactFloat64(),
		Equity:      equity,
		Peak:        s.peak,
		Positions:   s.pf.Len(),
	}
	if s.peak > 0 {
		pt.Drawdown = (equity - s.peak) / s.peak
	}
	if n := len(s.result.Equity); n > 0 {
		if prev := s.result.Equity[n-1].Equity; prev != 0 {
			pt.DailyReturn = equity/prev - 1
		}
	}
	s.result.Equity = append(s.result.Equity, pt)
}
