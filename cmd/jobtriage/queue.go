package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	queueStatus     string
	queueExportPath string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and act on the approval queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued submissions",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the queue to an Excel workbook",
	Args:  cobra.NoArgs,
	RunE:  runQueueExport,
}

var queueApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a submission and send its email",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueApprove,
}

var queueRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueReject,
}

func init() {
	queueListCmd.Flags().StringVar(&queueStatus, "status", "", "Filter by status: pending, approved, rejected, changes_requested")
	queueExportCmd.Flags().StringVar(&queueStatus, "status", "", "Filter by status")
	queueExportCmd.Flags().StringVarP(&queueExportPath, "out", "o", "", "Output file (default approval-queue-YYYYMMDD.xlsx)")

	queueCmd.AddCommand(queueListCmd, queueExportCmd, queueApproveCmd, queueRejectCmd)
	rootCmd.AddCommand(queueCmd)
}

func withQueue(cmd *cobra.Command, fn func(q *approval.Queue) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	q, closeFn, err := openQueue(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(q)
}

func parseStatus(s string) (types.Status, error) {
	switch status := types.Status(s); status {
	case "", types.StatusPending, types.StatusApproved, types.StatusRejected, types.StatusChangesRequested:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	status, err := parseStatus(queueStatus)
	if err != nil {
		return err
	}
	return withQueue(cmd, func(q *approval.Queue) error {
		subs, err := q.List(cmd.Context(), status)
		if err != nil {
			return err
		}
		if !verbose {
			return writeJSON(cmd.OutOrStdout(), subs)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tSOURCE\tROLE\tCLOUD\tTO")
		for _, s := range subs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Status, s.Source,
				s.Parsed.Role, s.Parsed.Cloud, s.EmailTo)
		}
		return tw.Flush()
	})
}

func runQueueExport(cmd *cobra.Command, _ []string) error {
	status, err := parseStatus(queueStatus)
	if err != nil {
		return err
	}
	path := queueExportPath
	if path == "" {
		path = "approval-queue-" + time.Now().Format("20060102") + ".xlsx"
	}
	return withQueue(cmd, func(q *approval.Queue) error {
		subs, err := q.List(cmd.Context(), status)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := approval.ExportXLSX(subs, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d submissions to %s\n", len(subs), path)
		return nil
	})
}

func runQueueApprove(cmd *cobra.Command, args []string) error {
	return withQueue(cmd, func(q *approval.Queue) error {
		sub, err := q.Approve(cmd.Context(), args[0], approval.Edits{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", sub.ID, sub.EmailTo)
		return nil
	})
}

func runQueueReject(cmd *cobra.Command, args []string) error {
	return withQueue(cmd, func(q *approval.Queue) error {
		sub, err := q.Reject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", sub.ID)
		return nil
	})
}
