// Package cli implements the quant command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/config"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// RootConfig carries the persistent flags.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	EnvFile    string
}

// load returns the run file named by --config, or the defaults filled from
// the environment when none was given.
func (rc *RootConfig) load() (*config.Config, error) {
	if rc.ConfigPath == "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return config.LoadFromFile(rc.ConfigPath)
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "quant",
		Short:         "Quant: layered strategy backtesting and experiments on daily bars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to run config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Environment file loaded when present")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(rc.EnvFile); err != nil {
			return err
		}
		level, err := parseLevel(rc.LogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		return nil
	}

	cmd.AddCommand(
		newBacktestCmd(rc),
		newExperimentCmd(rc),
		newPresetsCmd(),
		newConfigCmd(rc),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "quant %s\n", Version)
			},
		},
	)

	return cmd
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
