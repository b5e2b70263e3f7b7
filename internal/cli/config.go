package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/strategy"
	"github.com/rustyeddy/quant/strategy/builtin"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate run configuration files",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "quant.yaml", "Output path (.yaml/.yml or .json)")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a configuration file loads and its strategies build",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = rc.ConfigPath
			}
			if path == "" {
				return fmt.Errorf("--file or --config is required")
			}
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			reg := builtin.Registry()
			resolver := strategy.NewResolver(reg)
			factory := strategy.NewFactory(reg)
			scfg, err := cfg.ResolveStrategy(resolver, nil)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			c, err := factory.Build(scfg)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			specs, err := cfg.ExperimentSpecs(resolver)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			for _, s := range specs {
				if _, err := factory.Build(s.Strategy); err != nil {
					return fmt.Errorf("validation failed: experiment %q: %w", s.Name, err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration valid: %s\n", path)
			fmt.Fprintf(out, "  strategy:    %s\n", c.Name())
			fmt.Fprintf(out, "  period:      %s .. %s\n", cfg.Backtest.Start, cfg.Backtest.End)
			fmt.Fprintf(out, "  experiments: %d\n", len(specs))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "Config file to validate (defaults to --config)")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
