package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
)

func newUpdatesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List tracked updates with their install status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				host, err := store.HostByName(cmd.Context(), ctx.hostName())
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

				rows := make([]updateRow, 0, len(statuses))
				for _, status := range statuses {
					tally, err := store.InstallTally(cmd.Context(), hostID, status.ID)
					if err != nil {
						return err
					}
					rows = append(rows, updateRow{UpdateStatus: status, Tally: tally})
				}

				if asJSON {
					type jsonRow struct {
						Name      string `json:"name"`
						Status    string `json:"status"`
						Files     int64  `json:"files"`
						Installed int64  `json:"installed"`
						Failed    int64  `json:"failed"`
					}
					items := make([]jsonRow, 0, len(rows))
					for _, row := range rows {
						items = append(items, jsonRow{
							Name:      row.Name,
							Status:    string(row.Status),
							Files:     row.Tally.Total,
							Installed: row.Tally.Installed,
							Failed:    row.Tally.Failed,
						})
					}
					return writeJSON(cmd, map[string]any{"host": ctx.hostName(), "updates": items})
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No updates tracked")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Update", "Status", "Files", "Installed", "Failed"},
					buildUpdateRows(rows),
					2, 3, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
