package selection

import (
	"testing"
	"time"

	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

// series builds one bar per {open, close} pair on consecutive days.
func series(sym string, oc ...[2]float64) market.Series {
	out := make(market.Series, len(oc))
	for i, v := range oc {
		hi, lo := v[0], v[1]
		if lo > hi {
			hi, lo = lo, hi
		}
		out[i] = market.Bar{Symbol: sym, Date: day(i), Open: v[0], High: hi, Low: lo, Close: v[1], Volume: 1000}
	}
	return out
}

func snapshot(date time.Time, universe []string, h map[string]market.Series) strategy.Snapshot {
	return strategy.Snapshot{Date: date, Universe: universe, History: h}
}

func symbols(c []strategy.Candidate) []string {
	out := make([]string, len(c))
	for i := range c {
		out[i] = c[i].Symbol
	}
	return out
}

func TestUniverseSkipsShortHistoryAndGaps(t *testing.T) {
	t.Parallel()

	s, _, err := NewUniverse(strategy.Params{"min_trade_days": 2})
	require.NoError(t, err)

	snap := snapshot(day(2), []string{"A", "B", "C"}, map[string]market.Series{
		"A": series("A", [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}),
		"B": series("B", [2]float64{1, 1})[:1],
		"C": series("C", [2]float64{1, 1}, [2]float64{1, 1}),
	})
	// B has one bar; C has no bar on day 2.
	snap.History["B"][0].Date = day(2)
	assert.Equal(t, []string{"A"}, symbols(s.Select(snap)))
}

func TestTopWeightTakesFirstN(t *testing.T) {
	t.Parallel()

	s, resolved, err := NewTopWeight(strategy.Params{"top_n": 2})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved["min_trade_days"])

	h := map[string]market.Series{}
	for _, sym := range []string{"A", "B", "C", "D"} {
		h[sym] = series(sym, [2]float64{1, 1})
	}
	delete(h, "A")
	got := s.Select(snapshot(day(0), []string{"A", "B", "C", "D"}, h))
	assert.Equal(t, []string{"B", "C"}, symbols(got))
	assert.Equal(t, []string{"top_weight"}, got[0].Reasons)

	_, _, err = NewTopWeight(strategy.Params{"top_n": 0})
	assert.ErrorIs(t, err, strategy.ErrInvalidParam)
}

func b1Snapshot() strategy.Snapshot {
	return snapshot(day(1), []string{"B", "A", "C"}, map[string]market.Series{
		// big positive and above its 2-bar average
		"A": series("A", [2]float64{10, 10}, [2]float64{10, 11}),
		// above average only
		"B": series("B", [2]float64{9, 9}, [2]float64{10, 10.2}),
		// neither
		"C": series("C", [2]float64{10, 10}, [2]float64{10, 9}),
	})
}

func TestB1ScoresAndOrders(t *testing.T) {
	t.Parallel()

	s, _, err := NewB1(strategy.Params{
		"conditions":     []any{"big_positive", "above_ma_condition"},
		"logic":          "or",
		"ma_window":      2,
		"min_trade_days": 2,
	})
	require.NoError(t, err)

	got := s.Select(b1Snapshot())
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, []string{CondBigPositive, CondAboveMA}, got[0].Reasons)
	assert.Equal(t, "B", got[1].Symbol)
	assert.Equal(t, 0.5, got[1].Score)
	assert.Equal(t, []string{CondAboveMA}, got[1].Reasons)
}

func TestB1AndLogic(t *testing.T) {
	t.Parallel()

	s, _, err := NewB1(strategy.Params{
		"conditions":     []any{"big_positive", "above_ma"},
		"ma_window":      2,
		"min_trade_days": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, symbols(s.Select(b1Snapshot())))

	// Deterministic across calls.
	assert.Equal(t, s.Select(b1Snapshot()), s.Select(b1Snapshot()))
}

func TestB1Defaults(t *testing.T) {
	t.Parallel()

	_, resolved, err := NewB1(nil)
	require.NoError(t, err)
	assert.Equal(t, -10, resolved["j_threshold"])
	assert.Equal(t, 20, resolved["min_trade_days"])
	assert.Equal(t, 2, resolved["volume_ratio"]) // whole floats come back as ints
	assert.Equal(t, "AND", resolved["logic"])
	assert.Equal(t, []any{"kdj", "bottom_pattern", "big_positive", "above_ma"}, resolved["conditions"])
}

func TestB1RejectsBadParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params strategy.Params
		want   error
	}{
		{"unknown key", strategy.Params{"kdj_period": 9}, strategy.ErrUnknownParam},
		{"unknown condition", strategy.Params{"conditions": []any{"moon_phase"}}, strategy.ErrInvalidParam},
		{"empty conditions", strategy.Params{"conditions": []any{}}, strategy.ErrInvalidParam},
		{"bad logic", strategy.Params{"logic": "XOR"}, strategy.ErrInvalidParam},
		{"bad ma window", strategy.Params{"ma_window": 0}, strategy.ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewB1(tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
