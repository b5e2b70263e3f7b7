// Package strategy defines the four-layer strategy model (selection, entry,
// exit, execution) and assembles registered layer variants into an
// immutable Composite.
package strategy

import (
	"time"

	"github.com/rustyeddy/quant/market"
)

// Layer names one of the four strategy layers.
type Layer string

const (
	LayerSelection Layer = "selection"
	LayerEntry     Layer = "entry"
	LayerExit      Layer = "exit"
	LayerExecution Layer = "execution"
)

// Layers returns the layers in evaluation order.
func Layers() []Layer {
	return []Layer{LayerSelection, LayerEntry, LayerExit, LayerExecution}
}

// Candidate is one ranked symbol returned by a Selection.
type Candidate struct {
	Symbol  string
	Score   float64
	Reasons []string
}

// Snapshot is the market as of one date. History holds every universe
// symbol's bars up to and including Date and must be treated as read-only.
type Snapshot struct {
	Date     time.Time
	Universe []string
	History  map[string]market.Series
}

// Signal is a buy intent produced by an Entry. Zero StopLoss or
// TargetPrice means the level is unset.
type Signal struct {
	Symbol      string
	Date        time.Time
	Price       float64
	StopLoss    float64
	TargetPrice float64
	Metadata    map[string]string
}

// Position is an open long holding.
type Position struct {
	Symbol        string
	EntryDate     time.Time
	EntryPrice    float64
	Quantity      int64
	StopLoss      float64
	TargetPrice   float64
	// HighWaterMark is the highest close seen since entry. It starts at the
	// fill price before slippage.
	HighWaterMark float64
	// InitialStop is the stop in force when the position opened; the
	// distance to it is the position's initial risk.
	InitialStop float64
}

// HoldingDays is the number of calendar days between entry and d.
func (p Position) HoldingDays(d time.Time) int {
	return HoldingDays(p.EntryDate, d)
}

// HoldingDays returns the whole calendar days from entry to exit.
func HoldingDays(entry, exit time.Time) int {
	return int(market.Day(exit).Sub(market.Day(entry)).Hours() / 24)
}

// ExitReason is why a position was closed.
type ExitReason string

const (
	ReasonStopLoss     ExitReason = "stop_loss"
	ReasonTakeProfit   ExitReason = "take_profit"
	ReasonTimeStop     ExitReason = "time_stop"
	ReasonTrailingStop ExitReason = "trailing_stop"
	ReasonManual       ExitReason = "manual"
)

// Valid reports whether r is one of the fixed exit reasons.
func (r ExitReason) Valid() bool {
	switch r {
	case ReasonStopLoss, ReasonTakeProfit, ReasonTimeStop, ReasonTrailingStop, ReasonManual:
		return true
	}
	return false
}

// ExitDecision is the result of evaluating a position against a bar.
// RaiseStop, when positive on a non-exit decision, is a new stop level the
// caller should apply to the position.
type ExitDecision struct {
	Exit      bool
	Reason    ExitReason
	Price     float64
	RaiseStop float64
}

// Hold is the decision to keep a position open.
var Hold = ExitDecision{}

// Fill is a raw execution price and the date it occurs, before costs.
type Fill struct {
	Price float64
	Date  time.Time
}

// Selection ranks the symbols eligible for entry on a date.
type Selection interface {
	Select(snap Snapshot) []Candidate
}

// Entry inspects a symbol's history, evaluated on its last bar.
type Entry interface {
	Generate(symbol string, history market.Series) []Signal
}

// Exit decides whether to close a position on the given bar.
type Exit interface {
	Evaluate(pos Position, bar market.Bar) ExitDecision
}

// Execution resolves the fill for a signal from the symbol's bars. It
// reports false when the fill bar is not available.
type Execution interface {
	Fill(sig Signal, bars market.Series) (Fill, bool)
}
