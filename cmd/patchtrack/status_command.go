package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment health and catalog state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Environment", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, result := range preflight.RunAll(cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Catalog", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Store", statusInfo, store.Path(), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Host", statusInfo, ctx.hostName(), colorize))
				fmt.Fprintln(stdout, lastRunLine(cmd, store, ctx.hostName(), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Updates", colorize) {
					fmt.Fprintln(stdout, line)
				}
				return printUpdateStatusLines(cmd, store, ctx.hostName(), colorize)
			})
		},
	}
}

func lastRunLine(cmd *cobra.Command, store *catalog.Store, hostName string, colorize bool) string {
	host, err := store.HostByName(cmd.Context(), hostName)
	if err != nil {
		return renderStatusLine("Last Run", statusError, err.Error(), colorize)
	}
	if host == nil {
		return renderStatusLine("Last Run", statusWarn, "never (run `patchtrack reconcile`)", colorize)
	}
	run, err := store.LastRun(cmd.Context(), host.ID)
	if err != nil {
		return renderStatusLine("Last Run", statusError, err.Error(), colorize)
	}
	if run == nil {
		return renderStatusLine("Last Run", statusWarn, "never (run `patchtrack reconcile`)", colorize)
	}
	detail := fmt.Sprintf("%s (%s, +%d/-%d updates, +%d/-%d files)",
		run.FinishedAt.UTC().Format(time.RFC3339),
		shortRunID(run.ID),
		run.UpdatesAdded,
		run.UpdatesRemoved,
		run.FilesAdded,
		run.FilesRemoved,
	)
	return renderStatusLine("Last Run", statusOK, detail, colorize)
}

func printUpdateStatusLines(cmd *cobra.Command, store *catalog.Store, hostName string, colorize bool) error {
	stdout := cmd.OutOrStdout()

	host, err := store.HostByName(cmd.Context(), hostName)
	if err != nil {
		return err
	}
	var hostID int64
	if host != nil {
		hostID = host.ID
	}
	statuses, err := store.UpdatesForHost(cmd.Context(), hostID)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(stdout, statusIndent+"No updates tracked")
		return nil
	}
	for _, status := range statuses {
		fmt.Fprintln(stdout, renderStatusLine(
			status.Name,
			statusKindForRollup(status.Status),
			formatStatusLabel(status.Status),
			colorize,
		))
	}
	return nil
}
