package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download cache",
	}
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	return cacheCmd
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove cache entries older than the configured TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := ctx.ensure()
			if err != nil {
				return err
			}
			store, err := openCache(settings, logger)
			if err != nil {
				return err
			}
			n, err := store.EvictOlderThan(settings.CacheTTL())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Removed %d expired entries from %s", n, store.Dir())))
			return nil
		},
	}
}
