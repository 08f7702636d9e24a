package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/observability"
	"github.com/jonathan/jobtriage/internal/profile"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
	"github.com/jonathan/jobtriage/internal/validation"
)

var (
	generateOutDir  string
	generateTeXOnly bool
)

// generateOutput is the JSON printed by generate
type generateOutput struct {
	Analysis   *types.JDAnalysis      `json:"analysis"`
	Metadata   resume.Metadata        `json:"metadata"`
	TexPath    string                 `json:"texPath"`
	PDFPath    string                 `json:"pdfPath,omitempty"`
	Pages      int                    `json:"pages,omitempty"`
	Validation types.ValidationResult `json:"validation"`
}

var generateCmd = &cobra.Command{
	Use:   "generate [file|-]",
	Short: "Generate a tailored resume for a job description",
	Long: `Analyze a job description, select and order profile content for it, render
the LaTeX resume and compile it to PDF. The resume is validated against the
formatting rules; the command fails when validation reports errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", "", "Output directory (default from OUTBOX_DIR)")
	generateCmd.Flags().BoolVar(&generateTeXOnly, "tex-only", false, "Write the .tex file without compiling")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	analysis := classifier.NewExtractor(client, logger).Analyze(ctx, text, types.SourceManual)
	res, err := newGenerator(cfg, logger).Generate(prof, analysis)
	if err != nil {
		return err
	}

	outDir := generateOutDir
	if outDir == "" {
		outDir = cfg.OutboxDir
	}
	renderer := newRenderer(cfg, outDir, logger)
	out := generateOutput{Analysis: analysis, Metadata: res.Metadata}
	if generateTeXOnly {
		out.TexPath, err = renderer.WriteTeX(res.LaTeX, profile.FilenameBase(prof))
	} else {
		art, cerr := renderer.Compile(ctx, res.LaTeX, profile.FilenameBase(prof))
		if art != nil {
			out.TexPath, out.PDFPath, out.Pages = art.TexPath, art.PDFPath, art.Pages
		}
		err = cerr
	}
	if err != nil {
		return err
	}

	opts := validation.Options{
		Entries:         res.Metadata.Entries,
		ExpectEducation: len(prof.Education) > 0,
		Pages:           out.Pages,
		MaxPages:        cfg.MaxPages,
	}
	out.Validation = validation.Validate(res.LaTeX, analysis, res.Document, opts)

	if cfg.Verbose {
		printer := observability.NewPrinter(cmd.OutOrStdout())
		printer.PrintAnalysis(analysis)
		printer.PrintMetadata(&res.Metadata)
		printer.PrintViolations(validation.Check(res.LaTeX, analysis, res.Document, opts))
		fmt.Fprintf(cmd.OutOrStdout(), "tex: %s\n", out.TexPath)
		if out.PDFPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "pdf: %s (%d pages)\n", out.PDFPath, out.Pages)
		}
	} else if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if !out.Validation.OK {
		return &validation.Error{Errors: out.Validation.Errors}
	}
	return nil
}
