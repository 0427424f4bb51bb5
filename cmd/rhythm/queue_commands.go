package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"rhythm/internal/queue"
)

func newQueueCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the analysis ledger",
	}
	cmd.AddCommand(newQueueListCommand(cmdCtx))
	cmd.AddCommand(newQueueHealthCommand(cmdCtx))
	cmd.AddCommand(newQueueClearCommand(cmdCtx))
	return cmd
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyzed and in-flight tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			var statuses []queue.Status
			if statusFlag != "" {
				status, ok := queue.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				statuses = append(statuses, status)
			}

			items, err := ledger.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ledger is empty")
				return nil
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			if isatty.IsTerminal(os.Stdout.Fd()) {
				writer.SetStyle(table.StyleRounded)
			}
			writer.AppendHeader(table.Row{"ID", "Title", "Status", "Tech", "Creative", "Instr", "Updated"})
			for _, item := range items {
				title := item.Title
				if title == "" {
					title = item.SourcePath
				}
				writer.AppendRow(table.Row{
					item.ID, title, item.Status,
					item.TechStatus, item.CreativeStatus, item.InstrStatus,
					item.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			writer.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (queued, technical, analyzing, completed, failed, canceled)")
	return cmd
}

func newQueueHealthCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize ledger counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			summary, err := ledger.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d queued=%d processing=%d completed=%d failed=%d\n",
				summary.Total, summary.Queued, summary.Processing, summary.Completed, summary.Failed)
			return nil
		},
	}
}

func newQueueClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all ledger rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			removed, err := ledger.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d items\n", removed)
			return nil
		},
	}
}
