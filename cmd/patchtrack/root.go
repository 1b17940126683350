package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var hostFlag string

	ctx := newCommandContext(&configFlag, &hostFlag)

	rootCmd := &cobra.Command{
		Use:           "patchtrack",
		Short:         "Track update installation status across hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Act as this host instead of the configured one")

	rootCmd.AddCommand(newReconcileCommand(ctx))
	rootCmd.AddCommand(newUpdatesCommand(ctx))
	rootCmd.AddCommand(newFilesCommand(ctx))
	rootCmd.AddCommand(newInstallCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newSetResultCommand(ctx))
	rootCmd.AddCommand(newHostsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
