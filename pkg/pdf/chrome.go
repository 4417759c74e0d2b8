package pdf

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ErrBrowserMissing is returned when no Chrome or Chromium binary is installed.
var ErrBrowserMissing = errors.New("pdf rendering requires chromium")

var browserBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// ChromeRenderer prints documents to A4 PDF using a headless browser.
type ChromeRenderer struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChromeRenderer constructs a renderer. A non-positive timeout defaults to 30 seconds.
func NewChromeRenderer(timeout time.Duration, logger zerolog.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeRenderer{
		timeout: timeout,
		logger:  logger.With().Str("component", "pdf_renderer").Logger(),
	}
}

// Available reports whether a browser binary can be found on PATH.
func Available() bool {
	for _, name := range browserBinaries {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Render converts the document to PDF bytes.
func (r *ChromeRenderer) Render(parent context.Context, doc Document) ([]byte, error) {
	if !Available() {
		return nil, ErrBrowserMissing
	}

	html, err := HTML(doc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var data []byte
	start := time.Now()
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			data, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.8).
				WithMarginBottom(0.8).
				WithMarginLeft(0.8).
				WithMarginRight(0.8).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	r.logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(data)).Msg("proposal pdf rendered")
	return data, nil
}
