package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/CK6170/calunc-go/internal/config"
	"github.com/CK6170/calunc-go/internal/logging"
	"github.com/CK6170/calunc-go/modern"
)

var (
	configPath string
	logLevel   string

	cfg    = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "calunc",
	Short:         "Uncertainty budget calculator",
	Long:          `Computes GUM uncertainty budgets and tolerance verdicts for scales, thermometers, thermohygrometers and test weights.`,
	Version:       modern.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") || c.Log.Level == "" {
			c.Log.Level = logLevel
		}
		cfg = c
		logger = logging.New(cfg.Log.Level, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

// calcOptions are the calculator options from the loaded config.
func calcOptions() modern.Options {
	opts := cfg.CalcOptions()
	opts.Logger = logger
	return opts
}
