package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "contentpub",
		Short:         "Content publishing operations: topic uploads, index updates, and exports",
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

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Mirror log output to stderr")
	pf.BoolVarP(&flags.yes, "yes", "y", false, "Answer yes to confirmations (non-interactive)")
	pf.StringVar(&flags.dir, "dir", "", "Folder to use instead of asking (non-interactive)")
	pf.StringVar(&flags.env, "env", "", "Index environment to use instead of asking: UAT or Production")

	rootCmd.AddCommand(newTopicCommand(ctx))
	rootCmd.AddCommand(newIndexCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
