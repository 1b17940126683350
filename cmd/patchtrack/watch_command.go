package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/metrics"
	"patchtrack/internal/reconcile"
	"patchtrack/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the update tree and reconcile continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, err := commandLogger(cfg)
				if err != nil {
					return err
				}

				rec := reconcile.New(cfg, store, logger)
				watcher := watch.New(cfg, rec, metrics.New(), logger)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Watching %s as host %s\n", cfg.Paths.BaseDir, ctx.hostName())
				if cfg.Metrics.Bind != "" {
					fmt.Fprintf(out, "Metrics on http://%s/metrics\n", cfg.Metrics.Bind)
				}
				return watcher.Run(signalCtx)
			})
		},
	}
}
