package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/observability"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	classifySubject string
	classifyFrom    string
	classifyBody    string
	classifySource  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file|-]",
	Short: "Run the job-description gate on one message",
	Long: `Classify a message body (from a file, stdin or --body) and print the gate
verdict: accept or reject, the deciding rule and the keyword signals. Uncertain
messages are escalated to the model when an API key is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifySubject, "subject", "s", "", "Message subject line")
	classifyCmd.Flags().StringVar(&classifyFrom, "from", "", "Sender address")
	classifyCmd.Flags().StringVarP(&classifyBody, "body", "b", "", "Message body (instead of a file)")
	classifyCmd.Flags().StringVar(&classifySource, "source", "email", "Message channel: email or chat")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	body, err := readInput(cmd, classifyBody, args)
	if err != nil {
		return err
	}

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	msg := types.RawMessage{
		Source:     types.NormalizeProvenance(classifySource),
		From:       classifyFrom,
		Subject:    classifySubject,
		Body:       body,
		ReceivedAt: time.Now(),
	}
	verdict := classifier.NewGate(client, classifier.WithGateLogger(logger)).Classify(ctx, msg)

	if cfg.Verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintVerdict(msg, verdict)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), verdict)
}
