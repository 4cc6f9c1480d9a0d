package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Telegram joke bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}

	cmd.AddCommand(
		newCheckConfigCmd(),
		newCheckAPICmd(),
		newStatsCmd(),
		newUsersCmd(),
	)
	return cmd
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and print the configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.Load)
			if err != nil {
				return err
			}

			logging.Info("configuration check", logging.Fields{"event": "config_only"})
			fmt.Fprintln(cmd.OutOrStdout(), "configuration check: ok")
			fmt.Fprintln(cmd.OutOrStdout(), config.FormatRedacted(cfg))
			return nil
		},
	}
}

// loadConfig loads the configuration with load and installs the logger for it.
func loadConfig(load func() (config.Config, error)) (config.Config, error) {
	cfg, err := load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		return config.Config{}, fmt.Errorf("configuration error: %w", err)
	}

	if _, err := logging.Setup(cfg); err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		return config.Config{}, fmt.Errorf("logger setup error: %w", err)
	}

	return cfg, nil
}
