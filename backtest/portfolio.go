package backtest

import (
	"fmt"
	"time"

	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/execution"
	"github.com/shopspring/decimal"
)

type holding struct {
	pos             strategy.Position
	entryNotional   decimal.Decimal
	entryCommission decimal.Decimal
}

// Portfolio is one run's cash ledger and open positions. Cash is kept in
// decimal so fills and commissions never drift below zero through rounding.
// It is not safe for concurrent use.
type Portfolio struct {
	cash         decimal.Decimal
	maxPositions int
	holdings     map[string]*holding
	order        []string
}

func NewPortfolio(capital float64, maxPositions int) *Portfolio {
	return &Portfolio{
		cash:         decimal.NewFromFloat(capital),
		maxPositions: maxPositions,
		holdings:     map[string]*holding{},
	}
}

func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

// Len is the number of open positions.
func (p *Portfolio) Len() int { return len(p.order) }

func (p *Portfolio) Has(symbol string) bool {
	_, ok := p.holdings[symbol]
	return ok
}

// Symbols returns the open symbols in the order they were opened.
func (p *Portfolio) Symbols() []string {
	return append([]string(nil), p.order...)
}

func (p *Portfolio) Position(symbol string) (strategy.Position, bool) {
	h, ok := p.holdings[symbol]
	if !ok {
		return strategy.Position{}, false
	}
	return h.pos, true
}

// Positions returns copies of the open positions in opening order.
func (p *Portfolio) Positions() []strategy.Position {
	out := make([]strategy.Position, 0, len(p.order))
	for _, s := range p.order {
		out = append(out, p.holdings[s].pos)
	}
	return out
}

func (p *Portfolio) update(symbol string, fn func(*strategy.Position)) {
	if h, ok := p.holdings[symbol]; ok {
		fn(&h.pos)
	}
}

func cost(price decimal.Decimal, qty int64, costs execution.Costs) decimal.Decimal {
	notional := price.Mul(decimal.NewFromInt(qty))
	return notional.Add(costs.Commission(notional))
}

// Size returns floor(cash / slots / price). If commission would push the
// cost over cash the quantity is cut to what cash can pay for, so the
// result is never more than the floor-sized quantity.
func (p *Portfolio) Size(price float64, slots int, costs execution.Costs) int64 {
	if price <= 0 || slots <= 0 || !p.cash.IsPositive() {
		return 0
	}
	px := decimal.NewFromFloat(price)
	qty := p.cash.Div(decimal.NewFromInt(int64(slots))).Div(px).Floor().IntPart()
	if qty <= 0 {
		return 0
	}
	if cost(px, qty, costs).GreaterThan(p.cash) {
		unit := px.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(costs.CommissionRate)))
		qty = min(qty, p.cash.Div(unit).Floor().IntPart())
	}
	for qty > 0 && cost(px, qty, costs).GreaterThan(p.cash) {
		qty--
	}
	return qty
}

// Open buys qty at price. It fails if the symbol is already held, the
// portfolio is full or cash cannot cover notional plus commission.
func (p *Portfolio) Open(pos strategy.Position, costs execution.Costs) error {
	if p.Has(pos.Symbol) {
		return fmt.Errorf("position in %s already open", pos.Symbol)
	}
	if p.Len() >= p.maxPositions {
		return fmt.Errorf("max positions (%d) reached", p.maxPositions)
	}
	if pos.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0, got %d", pos.Quantity)
	}
	px := decimal.NewFromFloat(pos.EntryPrice)
	notional := px.Mul(decimal.NewFromInt(pos.Quantity))
	commission := costs.Commission(notional)
	total := notional.Add(commission)
	if total.GreaterThan(p.cash) {
		return fmt.Errorf("insufficient cash for %s: need %s, have %s", pos.Symbol, total.StringFixed(2), p.cash.StringFixed(2))
	}

	p.cash = p.cash.Sub(total)
	if pos.HighWaterMark <= 0 {
		pos.HighWaterMark = pos.EntryPrice
	}
	if pos.InitialStop == 0 {
		pos.InitialStop = pos.StopLoss
	}
	p.holdings[pos.Symbol] = &holding{pos: pos, entryNotional: notional, entryCommission: commission}
	p.order = append(p.order, pos.Symbol)
	return nil
}

// Close sells the whole position at price and returns the realized trade.
// PnL is net of both the entry and exit commission.
func (p *Portfolio) Close(symbol string, date time.Time, price float64, reason strategy.ExitReason, costs execution.Costs) (Trade, error) {
	h, ok := p.holdings[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("no open position in %s", symbol)
	}
	qty := decimal.NewFromInt(h.pos.Quantity)
	proceeds := decimal.NewFromFloat(price).Mul(qty)
	commission := costs.Commission(proceeds)

	p.cash = p.cash.Add(proceeds).Sub(commission)
	delete(p.holdings, symbol)
	for i, s := range p.order {
		if s == symbol {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	pnl := proceeds.Sub(commission).Sub(h.entryNotional).Sub(h.entryCommission)
	basis := h.entryNotional.Add(h.entryCommission)
	ret := decimal.Zero
	if basis.IsPositive() {
		ret = pnl.Div(basis)
	}

	return Trade{
		Symbol:      symbol,
		EntryDate:   h.pos.EntryDate,
		EntryPrice:  h.pos.EntryPrice,
		ExitDate:    date,
		ExitPrice:   price,
		Quantity:    h.pos.Quantity,
		PnL:         pnl.InexactFloat64(),
		Commission:  h.entryCommission.Add(commission).InexactFloat64(),
		ReturnPct:   ret.InexactFloat64(),
		HoldingDays: strategy.HoldingDays(h.pos.EntryDate, date),
		ExitReason:  reason,
	}, nil
}

// MarketValue is the sum of quantity times the given price per symbol.
func (p *Portfolio) MarketValue(prices map[string]float64) decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.order {
		h := p.holdings[s]
		total = total.Add(decimal.NewFromFloat(prices[s]).Mul(decimal.NewFromInt(h.pos.Quantity)))
	}
	return total
}
