package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/faults"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "files <update>",
		Short: "List an update's files with per-host install state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				update, err := store.ActiveUpdateByName(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if update == nil {
					return faults.Wrap(
						faults.ErrNotFound,
						"cli",
						"resolve update",
						fmt.Sprintf("No active update named %s", args[0]),
						nil,
					)
				}

				host, err := store.HostByName(cmd.Context(), ctx.hostName())
				if err != nil {
					return err
				}
				var hostID int64
				if host != nil {
					hostID = host.ID
				}

				statuses, err := store.FilesForUpdate(cmd.Context(), hostID, update.ID)
				if err != nil {
					return err
				}

				if asJSON {
					type jsonRow struct {
						ID        int64  `json:"id"`
						Name      string `json:"name"`
						Installed bool   `json:"installed"`
						Failed    bool   `json:"failed"`
					}
					items := make([]jsonRow, 0, len(statuses))
					for _, row := range statuses {
						items = append(items, jsonRow{
							ID:        row.ID,
							Name:      row.DisplayName,
							Installed: row.Installed,
							Failed:    row.Failed,
						})
					}
					return writeJSON(cmd, map[string]any{
						"host":   ctx.hostName(),
						"update": update.Name,
						"files":  items,
					})
				}

				out := cmd.OutOrStdout()
				if len(statuses) == 0 {
					fmt.Fprintf(out, "Update %s has no active files\n", update.Name)
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Status"},
					buildFileRows(statuses),
					0,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
