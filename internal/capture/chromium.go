package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "webcal/internal/log"
)

// Default snapshot parameters, sized for a desktop month view.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 900
	DefaultTimeoutSec = 30
)

// ReadySelector matches the root element of /calendar once it has rendered.
const ReadySelector = `[data-ready="true"]`

// Options defines a snapshot of the rendered calendar view.
type Options struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:5000".
	BaseURL string

	// View, Date (YYYY-MM-DD) and Colors select what /calendar renders.
	// Empty values use the server defaults.
	View   string
	Date   string
	Colors []string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport in pixels. Zero uses the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero uses DefaultTimeoutSec.
	Timeout time.Duration
}

// ViewURL builds the /calendar URL for opts.
func ViewURL(opts Options) (string, error) {
	if opts.BaseURL == "" {
		return "", fmt.Errorf("capture: base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("capture: invalid base URL: %w", err)
	}
	u = u.JoinPath("calendar")

	q := url.Values{}
	if opts.View != "" {
		q.Set("view", opts.View)
	}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if len(opts.Colors) > 0 {
		q.Set("colors", strings.Join(opts.Colors, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Snapshot launches headless Chromium via chromedp, opens the calendar view,
// waits for ReadySelector and writes a full-page PNG to opts.OutputPath.
func Snapshot(parentCtx context.Context, opts Options) error {
	target, err := ViewURL(opts)
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: output path is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	appLog.Info("snapshot start", "url", target, "width", opts.Width, "height", opts.Height)

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let the final paint settle.
		chromedp.Sleep(250 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("snapshot written", "path", opts.OutputPath, "bytes", len(png))
	return nil
}
