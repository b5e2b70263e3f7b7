package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/builtin"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		layers = newLayerFlags()

		dataDir   string
		preset    string
		start     string
		end       string
		capital   float64
		maxPos    int
		universe  int
		pool      string
		comm      float64
		slipBP    float64
		refresh   string
		closeEnd  bool
		exportDir string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one composite strategy over daily bars",
		Example: `  quant backtest --data ./data --preset b1_trailing --start 2024-01-01 --end 2024-06-30
  quant backtest --config run.yaml --exit trailing --set exit.trailing_pct=0.05 --export ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load()
			if err != nil {
				return err
			}

			f := cmd.Flags()
			bt := &cfg.Backtest
			if f.Changed("data") {
				cfg.Data.Dir = dataDir
			}
			if f.Changed("preset") {
				cfg.Strategy.Preset = preset
			}
			if f.Changed("start") {
				bt.Start = start
			}
			if f.Changed("end") {
				bt.End = end
			}
			if f.Changed("capital") {
				bt.InitialCapital = capital
			}
			if f.Changed("max-positions") {
				bt.MaxPositions = maxPos
			}
			if f.Changed("universe-size") {
				bt.UniverseSize = universe
			}
			if f.Changed("pool") {
				bt.Pool = pool
			}
			if f.Changed("commission") {
				bt.CommissionRate = comm
			}
			if f.Changed("slippage-bp") {
				bt.SlippageBP = slipBP
			}
			if f.Changed("refresh") {
				bt.UniverseRefresh = refresh
			}
			if f.Changed("close-at-end") {
				bt.CloseAtEnd = closeEnd
			}
			if exportDir != "" {
				cfg.Journal.Type, cfg.Journal.Dir = config.JournalCSV, exportDir
			}
			if dbPath != "" {
				cfg.Journal.Type, cfg.Journal.DBPath = config.JournalSQLite, dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			override, err := layers.override()
			if err != nil {
				return err
			}
			return runBacktest(cmd.Context(), cmd.OutOrStdout(), cfg, override)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data", "", "Directory of <SYMBOL>.csv daily bar files")
	f.StringVar(&preset, "preset", "", "Strategy preset (see quant presets)")
	for _, l := range strategy.Layers() {
		f.StringVar(layers.names[l], string(l), "", fmt.Sprintf("%s layer variant", l))
	}
	f.StringArrayVar(&layers.sets, "set", nil, "Layer parameter override layer.key=value (repeatable)")
	f.StringVar(&start, "start", "", "First simulated day (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "Last simulated day (YYYY-MM-DD)")
	f.Float64Var(&capital, "capital", 0, "Initial capital")
	f.IntVar(&maxPos, "max-positions", 0, "Maximum concurrent positions")
	f.IntVar(&universe, "universe-size", 0, "Cap on universe size (0 = no cap)")
	f.StringVar(&pool, "pool", "", "Named symbol pool from the data config")
	f.Float64Var(&comm, "commission", 0, "Commission rate per side")
	f.Float64Var(&slipBP, "slippage-bp", 0, "Slippage in basis points")
	f.StringVar(&refresh, "refresh", "", "Selection refresh: daily|weekly|once|N")
	f.BoolVar(&closeEnd, "close-at-end", false, "Liquidate open positions on the last day")
	f.StringVar(&exportDir, "export", "", "Write CSV tables, config snapshot and org report to this directory")
	f.StringVar(&dbPath, "db", "", "Record the run in this SQLite journal")

	return cmd
}

func runBacktest(ctx context.Context, w io.Writer, cfg *config.Config, override *strategy.Config) error {
	reg := builtin.Registry()
	scfg, err := cfg.ResolveStrategy(strategy.NewResolver(reg), override)
	if err != nil {
		return err
	}
	composite, err := strategy.NewFactory(reg).Build(scfg)
	if err != nil {
		return err
	}

	provider, err := market.LoadCSVDir(cfg.Data.Dir, cfg.Data.Pools)
	if err != nil {
		return err
	}
	opts, err := cfg.Backtest.Options()
	if err != nil {
		return err
	}
	opts.Logger = slog.Default()

	res, err := backtest.Run(ctx, provider, composite, opts)
	if err != nil {
		return err
	}
	if err := printResult(w, composite.Name(), res); err != nil {
		return err
	}
	return record(ctx, w, cfg.Journal, composite.Name(), res)
}

func printResult(w io.Writer, name string, res *backtest.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "strategy\t%s\n", name)
	fmt.Fprintf(tw, "period\t%s .. %s\n", res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	fmt.Fprintf(tw, "final_equity\t%.2f\n", res.FinalEquity())
	fmt.Fprintf(tw, "open_positions\t%d\n", len(res.Open))
	fmt.Fprintf(tw, "skipped_signals\t%d\n", res.Skipped)
	for _, m := range res.Metrics.Table() {
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.Value.Format(4))
	}
	return tw.Flush()
}

// record stores the run in the configured journal.
func record(ctx context.Context, w io.Writer, jc config.JournalConfig, name string, res *backtest.Result) error {
	switch jc.Type {
	case config.JournalNone:
		return nil
	case config.JournalCSV:
		dir := filepath.Join(jc.Dir, name)
		if err := journal.Export(dir, res); err != nil {
			return err
		}
		if err := writeOrgReport(filepath.Join(dir, "report.org"), name, res); err != nil {
			return err
		}
		fmt.Fprintf(w, "exported %s\n", dir)
		return nil
	}

	store, err := openStore(jc)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.RecordRun(ctx, name, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "recorded run %s (%s journal)\n", runID, jc.Type)
	return nil
}

func openStore(jc config.JournalConfig) (journal.RunStore, error) {
	switch jc.Type {
	case config.JournalSQLite:
		return journal.NewSQLite(jc.DBPath)
	case config.JournalPostgres:
		return journal.NewPostgres(jc.DSN)
	}
	return nil, fmt.Errorf("journal type %q has no run store", jc.Type)
}

func writeOrgReport(path, name string, res *backtest.Result) error {
	s, err := journal.Summarize(name, res)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := journal.WriteOrg(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
