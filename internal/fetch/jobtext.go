package fetch

import (
	"context"
	"log/slog"
)

// JobFetcher turns a job posting URL into description text. Render is
// optional; without it client-rendered boards come back short.
type JobFetcher struct {
	Options *Options
	Render  RenderFunc
	logger  *slog.Logger
}

// NewJobFetcher creates a fetcher. render may be nil.
func NewJobFetcher(opts *Options, render RenderFunc, logger *slog.Logger) *JobFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobFetcher{Options: opts, Render: render, logger: logger}
}

// JobText fetches the page over HTTP, extracts the description with the
// platform's selectors and falls back to a headless render when the text is
// too short. The longer of the two extractions is returned.
func (f *JobFetcher) JobText(ctx context.Context, urlStr string) (*Result, error) {
	platform := DetectPlatform(urlStr)
	content := PlatformContentSelectors(platform)
	noise := PlatformNoiseSelectors(platform)

	result, err := URL(ctx, urlStr, f.Options)
	if err != nil && (result == nil || f.Render == nil) {
		return nil, err
	}
	if result == nil {
		result = &Result{URL: urlStr}
	}
	if err == nil {
		result.Text, _ = ExtractMainText(result.HTML, content, noise...)
	}

	if !ShouldUseBrowser(result.Text) || f.Render == nil {
		return f.finish(result, platform)
	}

	f.logger.Info("page text too short, rendering with browser",
		slog.String("url", urlStr),
		slog.String("platform", string(platform)),
		slog.Int("chars", len(result.Text)),
	)
	html, rerr := f.Render(ctx, urlStr)
	if rerr != nil {
		f.logger.Warn("browser render failed", slog.String("url", urlStr), slog.Any("error", rerr))
		if result.Text == "" {
			if err != nil {
				return nil, err
			}
			return nil, &Error{URL: urlStr, Message: "no text extracted", Cause: rerr}
		}
		return f.finish(result, platform)
	}

	rendered, _ := ExtractMainText(html, content, noise...)
	if len(rendered) > len(result.Text) {
		result.HTML = html
		result.Text = rendered
		result.Rendered = true
	}
	return f.finish(result, platform)
}

func (f *JobFetcher) finish(result *Result, platform Platform) (*Result, error) {
	if result.Text == "" {
		return nil, &Error{URL: result.URL, Message: "no text extracted"}
	}
	f.logger.Debug("fetched job page",
		slog.String("url", result.URL),
		slog.String("platform", string(platform)),
		slog.Bool("rendered", result.Rendered),
		slog.Int("chars", len(result.Text)),
	)
	return result, nil
}
