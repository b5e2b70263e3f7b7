package experiment

import (
	"fmt"
	"slices"

	"github.com/rustyeddy/quant/performance"
)

// Report holds the runs of one experiment batch in input order.
type Report struct {
	Runs []Run
}

// Rank returns the runs ordered by metric. Ties keep input order and runs
// whose metric is null always sort last.
func (r *Report) Rank(metric string, descending bool) ([]Run, error) {
	if !slices.Contains(performance.Names(), metric) {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	out := slices.Clone(r.Runs)
	slices.SortStableFunc(out, func(a, b Run) int {
		va, _ := a.Result.Metrics.Lookup(metric)
		vb, _ := b.Result.Metrics.Lookup(metric)
		switch {
		case va.IsNull() && vb.IsNull():
			return 0
		case va.IsNull():
			return 1
		case vb.IsNull():
			return -1
		}
		if descending {
			return vb.Compare(va)
		}
		return va.Compare(vb)
	})
	return out, nil
}

// Table renders the comparison table: a header row of metric names, then
// one row per run.
func (r *Report) Table(runs []Run) [][]string {
	names := performance.Names()
	header := append([]string{"name"}, names...)
	rows := [][]string{header}
	for _, run := range runs {
		row := []string{run.Name}
		for _, n := range names {
			v, _ := run.Result.Metrics.Lookup(n)
			row = append(row, v.Format(4))
		}
		rows = append(rows, row)
	}
	return rows
}
