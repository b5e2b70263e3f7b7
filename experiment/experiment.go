// Package experiment runs several isolated backtests, possibly in parallel,
// and compares their metrics.
package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
	"golang.org/x/sync/errgroup"
)

// Spec describes one run.
type Spec struct {
	Name     string
	Strategy strategy.Config
	Options  backtest.Options
}

// Run is one completed experiment run.
type Run struct {
	Name   string
	Result *backtest.Result
}

// Engine executes Specs against a shared read-only Provider. Each run gets
// its own Portfolio; nothing mutable is shared between runs.
type Engine struct {
	Provider market.Provider
	Factory  *strategy.Factory
	// Parallelism bounds concurrent runs; 0 means GOMAXPROCS.
	Parallelism int
	Logger      *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// Run assembles every spec's strategy before starting any simulation, so a
// configuration error in any spec fails the whole batch up front. Results
// keep the input order.
func (e *Engine) Run(ctx context.Context, specs []Spec) (*Report, error) {
	if e.Provider == nil || e.Factory == nil {
		return nil, fmt.Errorf("experiment: Provider and Factory are required")
	}

	composites := make([]*strategy.Composite, len(specs))
	names := make([]string, len(specs))
	seen := map[string]bool{}
	for i, s := range specs {
		c, err := e.Factory.Build(s.Strategy)
		if err != nil {
			return nil, fmt.Errorf("experiment %q: %w", s.Name, err)
		}
		if err := s.Options.Validate(); err != nil {
			return nil, fmt.Errorf("experiment %q: %w", s.Name, err)
		}
		composites[i] = c
		names[i] = s.Name
		if names[i] == "" {
			names[i] = c.Name()
		}
		if seen[names[i]] {
			names[i] = fmt.Sprintf("%s#%d", names[i], i+1)
		}
		seen[names[i]] = true
	}

	limit := e.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	log := e.logger()

	runs := make([]Run, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range specs {
		i := i
		g.Go(func() error {
			opts := specs[i].Options
			if opts.Logger == nil {
				opts.Logger = log.With("experiment", names[i])
			}
			res, err := backtest.Run(gctx, e.Provider, composites[i], opts)
			if err != nil {
				return fmt.Errorf("experiment %q: %w", names[i], err)
			}
			runs[i] = Run{Name: names[i], Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("experiments complete", "runs", len(runs), "parallelism", limit)
	return &Report{Runs: runs}, nil
}

// Sweep copies base once per value, setting layer's parameter key to the
// value. Names are suffixed with key=value.
func Sweep(base Spec, layer strategy.Layer, key string, values []any) []Spec {
	out := make([]Spec, 0, len(values))
	for _, v := range values {
		s := base
		s.Strategy = base.Strategy.Clone()
		lc := s.Strategy.Layer(layer)
		if lc == nil {
			continue
		}
		if lc.Params == nil {
			lc.Params = strategy.Params{}
		}
		lc.Params[key] = v
		name := base.Name
		if name == "" {
			name = string(layer)
		}
		s.Name = fmt.Sprintf("%s_%s=%v", name, key, v)
		out = append(out, s)
	}
	return out
}
