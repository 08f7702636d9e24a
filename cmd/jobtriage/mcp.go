package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the triage tools over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout exposing classify_message, analyze_jd,
submit_jd and list_pending. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := mcpserver.New(mcpserver.Deps{
		Gate:      rt.gate,
		Extractor: rt.extractor,
		Submitter: rt.pipeline,
		Queue:     rt.queue,
		Logger:    rt.logger,
	}, version)
	return mcpserver.Run(ctx, server)
}
