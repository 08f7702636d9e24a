package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/compose"
	"github.com/jonathan/jobtriage/internal/observability"
	"github.com/jonathan/jobtriage/internal/profile"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	composeSource   string
	composeMaxWords int
)

// composeOutput is the JSON printed by compose
type composeOutput struct {
	To      string         `json:"to,omitempty"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Email   *compose.Email `json:"email"`
}

var composeCmd = &cobra.Command{
	Use:   "compose [file|-]",
	Short: "Draft the application email for a job description",
	Long: `Draft the application email for a job description: subject, greeting, two
short paragraphs, answers to any application questions and the signature.
The model writes the paragraphs when configured; a template is used otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVar(&composeSource, "source", "manual", "Where the JD came from: manual, email or chat")
	composeCmd.Flags().IntVar(&composeMaxWords, "max-words", 0, "Word ceiling for the two paragraphs (default 80)")
	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, "", args)
	if err != nil {
		return err
	}
	prof, err := profile.Load(cfg.ProfilePath)
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

	source := types.NormalizeProvenance(composeSource)
	analysis := classifier.NewExtractor(client, logger).Analyze(ctx, text, source)
	parsed := classifier.ParseJD(text)

	opts := []compose.Option{compose.WithLogger(logger)}
	if composeMaxWords > 0 {
		opts = append(opts, compose.WithMaxWords(composeMaxWords))
	}
	email := compose.NewComposer(client, opts...).Compose(ctx, compose.Input{
		Analysis: analysis,
		Profile:  prof,
		JDText:   text,
		Parsed:   &parsed,
	})

	if cfg.Verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintEmail(email.Subject, email.Full())
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), composeOutput{
		To:      parsed.RecruiterEmail,
		Subject: email.Subject,
		Body:    email.Full(),
		Email:   email,
	})
}
