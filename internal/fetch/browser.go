package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the shortest extracted text accepted from a plain HTTP
// fetch. Anything shorter is treated as a client-rendered page.
const MinContentLength = 500

// DefaultBrowserTimeout bounds one headless render.
const DefaultBrowserTimeout = 45 * time.Second

// hydrateWait bounds how long a render waits for the description to appear.
const hydrateWait = 8 * time.Second

// ShouldUseBrowser reports whether the extracted text is too short to be a
// real job description.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// RenderFunc returns the rendered HTML of a page.
type RenderFunc func(ctx context.Context, url string) (string, error)

var browserFlags = append(chromedp.DefaultExecAllocatorOptions[:],
	chromedp.Flag("headless", true),
	chromedp.Flag("disable-gpu", true),
	chromedp.Flag("no-sandbox", true),
	chromedp.Flag("disable-dev-shm-usage", true),
	chromedp.Flag("blink-settings", "imagesEnabled=false"),
)

// HeadlessRenderer returns a RenderFunc that loads pages in headless Chrome.
// Chrome or Chromium must be installed.
func HeadlessRenderer(timeout time.Duration, logger *slog.Logger) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, url string) (string, error) {
		return render(ctx, url, timeout, logger)
	}
}

func render(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, browserFlags...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	start := time.Now()
	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// ATS boards hydrate the description after load; a page that
			// never grows is still returned as-is
			var grown bool
			wait := fmt.Sprintf("document.body && document.body.innerText.length >= %d", MinContentLength)
			if err := chromedp.Poll(wait, &grown, chromedp.WithPollingTimeout(hydrateWait)).Do(ctx); err != nil {
				logger.Debug("page text stayed short", slog.String("url", url), slog.Any("error", err))
			}
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	logger.Debug("rendered page",
		slog.String("url", url),
		slog.Int("bytes", len(html)),
		slog.Duration("took", time.Since(start)),
	)
	return html, nil
}
