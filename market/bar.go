// Package market holds the daily bar model and the read-only data providers
// the backtester consumes.
package market

import (
	"fmt"
	"sort"
	"time"
)

// Bar is one daily OHLCV record for a symbol.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day truncates t to midnight UTC, the key every bar is stored under.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DataGapError reports that a symbol has no bar on a date.
type DataGapError struct {
	Symbol string
	Date   time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no bar for %s on %s", e.Symbol, e.Date.Format("2006-01-02"))
}

// Series is a symbol's bars in ascending date order.
type Series []Bar

// Index returns the position of the bar dated d.
func (s Series) Index(d time.Time) (int, bool) {
	d = Day(d)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(d) })
	if i < len(s) && s[i].Date.Equal(d) {
		return i, true
	}
	return i, false
}

// On returns the bar dated d or a *DataGapError.
func (s Series) On(d time.Time) (Bar, error) {
	i, ok := s.Index(d)
	if !ok {
		sym := ""
		if len(s) > 0 {
			sym = s[0].Symbol
		}
		return Bar{}, &DataGapError{Symbol: sym, Date: Day(d)}
	}
	return s[i], nil
}

// Through returns the bars dated on or before d. The result shares storage
// with s but its capacity is capped so appends never write into s.
func (s Series) Through(d time.Time) Series {
	i, ok := s.Index(d)
	if ok {
		i++
	}
	return s[:i:i]
}

// Between returns the bars within [start, end].
func (s Series) Between(start, end time.Time) Series {
	lo, _ := s.Index(start)
	hi, ok := s.Index(end)
	if ok {
		hi++
	}
	if hi < lo {
		hi = lo
	}
	return s[lo:hi:hi]
}

// Last returns the final bar.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close prices in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Normalize sorts bars by date, truncates dates to the day and drops
// duplicate dates, keeping the last one seen.
func Normalize(bars []Bar) Series {
	out := make(Series, 0, len(bars))
	for _, b := range bars {
		b.Date = Day(b.Date)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Calendar returns the sorted union of bar dates across series within
// [start, end].
func Calendar(series map[string]Series, start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	seen := make(map[time.Time]struct{})
	for _, s := range series {
		for _, b := range s.Between(start, end) {
			seen[b.Date] = struct{}{}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
