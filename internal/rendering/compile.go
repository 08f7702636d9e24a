package rendering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultCompileTimeout bounds a single LaTeX compilation
const DefaultCompileTimeout = 60 * time.Second

// Artifact is the output of a successful compile
type Artifact struct {
	TexPath string `json:"texPath"`
	PDFPath string `json:"pdfPath"`
	// Pages is zero when the page count could not be read
	Pages int    `json:"pages"`
	Log   string `json:"log,omitempty"`
}

// Renderer writes LaTeX into an output directory and compiles it with tectonic.
type Renderer struct {
	OutDir  string
	Command string
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewRenderer creates a renderer writing into outDir.
func NewRenderer(outDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		OutDir:  outDir,
		Command: "tectonic",
		Timeout: DefaultCompileTimeout,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Paths returns the .tex and .pdf paths for a filename base at time t.
func (r *Renderer) Paths(base string, t time.Time) (texPath, pdfPath string) {
	stem := fmt.Sprintf("%s_%s", base, t.UTC().Format("2006-01-02T15-04-05"))
	return filepath.Join(r.OutDir, stem+".tex"), filepath.Join(r.OutDir, stem+".pdf")
}

// WriteTeX writes the source file only.
func (r *Renderer) WriteTeX(tex, base string) (string, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return "", &CompileError{Message: "failed to create output directory", Cause: err}
	}
	texPath, _ := r.Paths(base, r.Now())
	if err := os.WriteFile(texPath, []byte(tex), 0o644); err != nil {
		return "", &CompileError{Message: "failed to write tex file", TexPath: texPath, Cause: err}
	}
	return texPath, nil
}

// Compile writes tex to the output directory and compiles it to PDF.
// The .tex file is kept on failure so it can be inspected.
func (r *Renderer) Compile(ctx context.Context, tex, base string) (*Artifact, error) {
	if strings.TrimSpace(tex) == "" {
		return nil, &CompileError{Message: "empty LaTeX source"}
	}

	texPath, err := r.WriteTeX(tex, base)
	if err != nil {
		return nil, err
	}
	pdfPath := strings.TrimSuffix(texPath, ".tex") + ".pdf"

	bin, err := exec.LookPath(r.Command)
	if err != nil {
		return nil, &CompileError{Message: r.Command + " not installed", TexPath: texPath, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-o", r.OutDir, texPath)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	log := out.String()
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &CompileError{Message: fmt.Sprintf("timed out after %s", r.Timeout), TexPath: texPath, Log: log, Cause: ctx.Err()}
		}
		return nil, &CompileError{Message: "compiler failed", TexPath: texPath, Log: log, Cause: runErr}
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, &CompileError{Message: "PDF not created", TexPath: texPath, Log: log, Cause: err}
	}

	art := &Artifact{TexPath: texPath, PDFPath: pdfPath, Log: log}
	if n, err := PageCount(pdfPath); err != nil {
		r.Logger.Warn("failed to read PDF page count", slog.String("pdf", pdfPath), slog.Any("error", err))
	} else {
		art.Pages = n
	}

	r.Logger.Info("compiled resume",
		slog.String("pdf", pdfPath),
		slog.Int("pages", art.Pages),
		slog.Duration("took", time.Since(start)),
	)
	return art, nil
}

// PageCount returns the number of pages in a PDF file.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, nil)
}
