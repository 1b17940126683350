package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
)

func newHostsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List known hosts with rollup counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				hosts, err := store.Hosts(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([]hostRow, 0, len(hosts))
				for _, host := range hosts {
					statuses, err := store.UpdatesForHost(cmd.Context(), host.ID)
					if err != nil {
						return err
					}
					counts := make(map[catalog.Status]int, 4)
					for _, status := range statuses {
						counts[status.Status]++
					}
					rows = append(rows, hostRow{
						Name:    host.Name,
						AddedAt: host.AddedAt,
						Total:   len(statuses),
						Counts:  counts,
					})
				}

				if asJSON {
					type jsonRow struct {
						Name      string `json:"name"`
						Updates   int    `json:"updates"`
						Installed int    `json:"installed"`
						Pending   int    `json:"pending"`
						Failed    int    `json:"failed"`
						Empty     int    `json:"empty"`
					}
					items := make([]jsonRow, 0, len(rows))
					for _, row := range rows {
						items = append(items, jsonRow{
							Name:      row.Name,
							Updates:   row.Total,
							Installed: row.Counts[catalog.StatusInstalled],
							Pending:   row.Counts[catalog.StatusPending],
							Failed:    row.Counts[catalog.StatusFailed],
							Empty:     row.Counts[catalog.StatusEmpty],
						})
					}
					return writeJSON(cmd, map[string]any{"hosts": items})
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No hosts have reconciled yet")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Host", "Updates", "Installed", "Pending", "Failed", "Empty", "First Seen"},
					buildHostRows(rows),
					1, 2, 3, 4, 5,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
