package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/handiism/songbot/internal/config"
	"github.com/handiism/songbot/internal/logging"
)

// commandContext loads settings and the logger once per invocation.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	once     sync.Once
	settings *config.Settings
	logger   *slog.Logger
	err      error
}

func (c *commandContext) ensure() (*config.Settings, *slog.Logger, error) {
	c.once.Do(func() {
		settings, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if *c.verboseFlag {
			settings.LogLevel = "debug"
		}
		logger, err := logging.New(logging.Options{Level: settings.LogLevel, Format: settings.LogFormat})
		if err != nil {
			c.err = err
			return
		}
		c.settings, c.logger = settings, logger
	})
	return c.settings, c.logger, c.err
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool
	ctx := &commandContext{configFlag: &configFlag, verboseFlag: &verboseFlag}

	rootCmd := &cobra.Command{
		Use:           "songbot",
		Short:         "Fetch, edit and deliver songs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (JSON, YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newDepsCommand(ctx))

	return rootCmd
}
