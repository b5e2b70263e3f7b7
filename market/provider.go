package market

import (
	"fmt"
	"sort"
	"time"
)

// Provider is the read-only market data source a run consumes. The core
// never retries provider failures.
type Provider interface {
	// History returns the symbol's bars dated within [start, end].
	History(symbol string, start, end time.Time) (Series, error)

	// Universe returns the pool's symbols as of asOf, in rank order.
	Universe(pool string, asOf time.Time) ([]string, error)
}

// Memory is an immutable in-memory Provider. Every History call returns a
// fresh copy so concurrent runs can never observe each other's writes.
type Memory struct {
	series map[string]Series
	pools  map[string][]string
}

// NewMemory builds a provider from per-symbol bars and optional named pools.
// Bars are normalized and the symbol is stamped on each bar.
func NewMemory(bars map[string][]Bar, pools map[string][]string) *Memory {
	m := &Memory{
		series: make(map[string]Series, len(bars)),
		pools:  make(map[string][]string, len(pools)),
	}
	for sym, bs := range bars {
		s := Normalize(bs)
		for i := range s {
			s[i].Symbol = sym
		}
		m.series[sym] = s
	}
	for name, syms := range pools {
		m.pools[name] = append([]string(nil), syms...)
	}
	return m
}

// History implements Provider.
func (m *Memory) History(symbol string, start, end time.Time) (Series, error) {
	s, ok := m.series[symbol]
	if !ok {
		return nil, fmt.Errorf("market: unknown symbol %q", symbol)
	}
	return s.Between(start, end).Clone(), nil
}

// Universe implements Provider. An empty pool name selects every symbol in
// lexical order.
func (m *Memory) Universe(pool string, asOf time.Time) ([]string, error) {
	if pool == "" {
		return m.Symbols(), nil
	}
	syms, ok := m.pools[pool]
	if !ok {
		return nil, fmt.Errorf("market: unknown pool %q", pool)
	}
	return append([]string(nil), syms...), nil
}

// Symbols lists every symbol held, sorted.
func (m *Memory) Symbols() []string {
	out := make([]string, 0, len(m.series))
	for sym := range m.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
