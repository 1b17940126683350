package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/reconcile"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Synchronize the update tree into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, err := commandLogger(cfg)
				if err != nil {
					return err
				}

				summary, err := reconcile.New(cfg, store, logger).Run(cmd.Context(), ctx.hostName())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reconciled %d updates for %s in %s\n",
					summary.UpdatesSeen,
					summary.Host,
					summary.Duration().Round(time.Millisecond),
				)
				if !summary.Changed() {
					fmt.Fprintln(out, "No changes")
					return nil
				}
				fmt.Fprintf(out, "  updates:      +%d -%d\n", summary.UpdatesAdded, summary.UpdatesRemoved)
				fmt.Fprintf(out, "  files:        +%d -%d\n", summary.FilesAdded, summary.FilesRemoved)
				fmt.Fprintf(out, "  pairs seeded: %d\n", summary.PairsSeeded)
				return nil
			})
		},
	}
}
