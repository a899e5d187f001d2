package main

import (
	"github.com/spf13/cobra"

	"contentpub/internal/workflow"
)

func newTopicCommand(ctx *commandContext) *cobra.Command {
	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Topic upload and filter job",
	}

	topicCmd.AddCommand(&cobra.Command{
		Use:   "upload",
		Short: "Package topic ZIP files, copy them to the server, and run the filter job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				_, err := m.TopicUpload(cmd.Context())
				return err
			})
		},
	})

	var recordID int64
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Run the filter job for the latest pending upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				_, err := m.FilterJob(cmd.Context(), recordID)
				return err
			})
		},
	}
	filterCmd.Flags().Int64Var(&recordID, "id", 0, "Upload record id (default: latest pending)")
	topicCmd.AddCommand(filterCmd)

	topicCmd.AddCommand(&cobra.Command{
		Use:   "clean [folder]",
		Short: "Delete the temporary working folder left by an upload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ctx.flags.dir
			if len(args) == 1 {
				dir = args[0]
			}
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				return m.TopicClean(cmd.Context(), dir)
			})
		},
	})

	return topicCmd
}

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Search index maintenance",
	}
	indexCmd.AddCommand(&cobra.Command{
		Use:   "update [UAT|Production]",
		Short: "Run the search index update for an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := ctx.flags.env
			if len(args) == 1 {
				env = args[0]
			}
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				_, err := m.IndexUpdate(cmd.Context(), env)
				return err
			})
		},
	})
	return indexCmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Teton content export",
	}
	exportCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the content export and archive its files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				_, err := m.ContentExport(cmd.Context())
				return err
			})
		},
	})
	exportCmd.AddCommand(&cobra.Command{
		Use:   "clean [YYYY-MM-DD]",
		Short: "Delete an archived export folder (default: latest completed export)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			return ctx.withManager(cmd, func(m *workflow.Manager) error {
				return m.ExportClean(cmd.Context(), folder)
			})
		},
	})
	return exportCmd
}
