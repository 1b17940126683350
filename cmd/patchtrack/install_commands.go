package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/installer"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var fileID int64

	cmd := &cobra.Command{
		Use:   "install <update>",
		Short: "Run the installer hook for an update's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := installer.InstallAll(args[0])
			if cmd.Flags().Changed("file") {
				if fileID <= 0 {
					return fmt.Errorf("invalid file id %d", fileID)
				}
				command = installer.InstallFile(args[0], fileID)
			}
			return runInstallerCommand(ctx, cmd, command)
		},
	}

	cmd.Flags().Int64Var(&fileID, "file", 0, "Install a single file by id")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <update>",
		Short: "Re-run the installer hook for an update's failed files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallerCommand(ctx, cmd, installer.RetryFailed(args[0]))
		},
	}
}

func runInstallerCommand(ctx *commandContext, cmd *cobra.Command, command installer.Command) error {
	return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
		logger, err := commandLogger(cfg)
		if err != nil {
			return err
		}

		runner := installer.NewHookRunner(cfg, logger)
		coordinator := installer.NewCoordinator(cfg, store, runner, logger)

		outcome, err := coordinator.Apply(cmd.Context(), ctx.hostName(), command)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeOutcome(outcome))
		return nil
	})
}

func newSetResultCommand(ctx *commandContext) *cobra.Command {
	var markInstalled bool
	var markFailed bool

	cmd := &cobra.Command{
		Use:   "set-result <file-id>",
		Short: "Record an externally observed install outcome for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if markInstalled == markFailed {
				return errors.New("specify exactly one of --installed or --failed")
			}
			id, err := parsePositiveID(args[0], "file id")
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, err := commandLogger(cfg)
				if err != nil {
					return err
				}

				coordinator := installer.NewCoordinator(cfg, store, nil, logger)
				update, status, err := coordinator.RecordResult(cmd.Context(), ctx.hostName(), id, markInstalled, markFailed)
				if err != nil {
					return err
				}

				result := "installed"
				if markFailed {
					result = "failed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "File %d recorded as %s; %s is now %s\n",
					id, result, update.Name, formatStatusLabel(status))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&markInstalled, "installed", false, "Record the file as installed")
	cmd.Flags().BoolVar(&markFailed, "failed", false, "Record the file as failed")
	return cmd
}
