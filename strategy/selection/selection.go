// Package selection provides the candidate-selection layer variants.
package selection

import (
	"sort"

	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

// Register adds every selection variant to r.
func Register(r *strategy.Registry) {
	r.RegisterSelection("b1", NewB1, "b1_selection")
	r.RegisterSelection("top_weight", NewTopWeight, "hs300_top_weight")
	r.RegisterSelection("universe", NewUniverse, "all")
}

// eligible returns the symbol's history if it has at least minDays bars and
// a bar on the snapshot date.
func eligible(snap strategy.Snapshot, symbol string, minDays int) (market.Series, bool) {
	h := snap.History[symbol]
	if len(h) == 0 || len(h) < minDays {
		return nil, false
	}
	if !h[len(h)-1].Date.Equal(market.Day(snap.Date)) {
		return nil, false
	}
	return h, true
}

// rank orders candidates by score, keeping universe order for ties.
func rank(c []strategy.Candidate) []strategy.Candidate {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
	return c
}
