package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/experiment"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/builtin"
)

func newExperimentCmd(rc *RootConfig) *cobra.Command {
	var (
		rank     string
		asc      bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:     "experiment",
		Short:   "Run the config's experiments in parallel and compare them",
		Example: `  quant experiment --config experiments.yaml --rank sharpe --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc.ConfigPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := rc.load()
			if err != nil {
				return err
			}
			if len(cfg.Experiments) == 0 {
				return fmt.Errorf("%s defines no experiments", rc.ConfigPath)
			}

			reg := builtin.Registry()
			specs, err := cfg.ExperimentSpecs(strategy.NewResolver(reg))
			if err != nil {
				return err
			}
			provider, err := market.LoadCSVDir(cfg.Data.Dir, cfg.Data.Pools)
			if err != nil {
				return err
			}

			engine := &experiment.Engine{
				Provider:    provider,
				Factory:     strategy.NewFactory(reg),
				Parallelism: parallel,
				Logger:      slog.Default(),
			}
			report, err := engine.Run(cmd.Context(), specs)
			if err != nil {
				return err
			}

			runs, err := report.Rank(rank, !asc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printTable(out, report.Table(runs)); err != nil {
				return err
			}
			for _, run := range runs {
				if err := record(cmd.Context(), out, cfg.Journal, run.Name, run.Result); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "sharpe", "Metric to rank by")
	cmd.Flags().BoolVar(&asc, "asc", false, "Rank ascending instead of descending")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent runs (0 = GOMAXPROCS)")

	return cmd
}

func printTable(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}
