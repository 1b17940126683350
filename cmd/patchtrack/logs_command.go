package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patchtrack/internal/logging"
	"patchtrack/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display reconciler logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return errors.New("no log directory configured")
			}

			limit := lines
			if limit < 0 {
				limit = 0
			}
			offset := int64(-1)
			if limit == 0 {
				// Zero means everything, so read forward from the start.
				offset = 0
			}

			printed := false
			for {
				result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					printed = true
				}
				offset = result.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
					}
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
