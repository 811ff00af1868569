package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	appLog "tzcal/internal/log"
)

// Defaults for rendering-surface snapshots.
const (
	DefaultWidth         = 1280
	DefaultHeight        = 960
	DefaultTimeout       = 30 * time.Second
	DefaultReadySelector = `[data-ready="true"]`
	DefaultSettle        = 500 * time.Millisecond
)

// Options defines a Chromium-based snapshot of a rendered calendar page.
type Options struct {
	// URL of the page to load, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport size in pixels.
	Width  int
	Height int

	// ReadySelector must become visible before the screenshot is taken.
	ReadySelector string

	// Settle is an extra wait after ReadySelector appears.
	Settle time.Duration

	// Timeout bounds the whole capture.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.ReadySelector == "" {
		o.ReadySelector = DefaultReadySelector
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// SnapshotPNG loads opts.URL in headless Chromium, waits for the page to mark
// itself ready and writes a full-page PNG to opts.OutputPath.
func SnapshotPNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(opts.ReadySelector, chromedp.ByQuery),
	}
	if opts.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.Settle))
	}
	tasks = append(tasks, chromedp.FullScreenshot(&png, 100))

	started := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("snapshot written",
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(started).String(),
	)
	return nil
}
