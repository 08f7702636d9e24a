package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/fetch"
	"github.com/jonathan/jobtriage/internal/observability"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	analyzeURL     string
	analyzeBrowser bool
)

// analyzeOutput is the JSON printed by analyze
type analyzeOutput struct {
	Analysis  *types.JDAnalysis `json:"analysis"`
	Parsed    types.ParsedJD    `json:"parsed"`
	Questions []string          `json:"questions,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Extract the structured analysis of a job description",
	Long: `Analyze a job description from a file, stdin or a posting URL and print the
extracted title, skills, cloud focus, role track and triggers, plus the
recruiter contact and application questions found in the text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeURL, "url", "u", "", "Fetch the job description from a posting URL")
	analyzeCmd.Flags().BoolVar(&analyzeBrowser, "browser", false, "Render the posting in headless Chrome when the page text is short")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	var text string
	if analyzeURL != "" {
		if err := fetch.ValidateURL(analyzeURL); err != nil {
			return err
		}
		var render fetch.RenderFunc
		if analyzeBrowser || cfg.UseBrowser {
			render = fetch.HeadlessRenderer(fetch.DefaultBrowserTimeout, logger)
		}
		result, err := fetch.NewJobFetcher(fetch.DefaultOptions(), render, logger).JobText(ctx, analyzeURL)
		if err != nil {
			return err
		}
		text = result.Text
	} else {
		text, err = readInput(cmd, "", args)
		if err != nil {
			return err
		}
	}

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	analysis := classifier.NewExtractor(client, logger).Analyze(ctx, text, types.SourceManual)
	if cfg.Verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(analysis)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), analyzeOutput{
		Analysis:  analysis,
		Parsed:    classifier.ParseJD(text),
		Questions: classifier.ApplicationQuestions(text),
	})
}
