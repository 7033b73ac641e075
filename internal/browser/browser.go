package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser wraps a headless Chromium instance used as the second fetch
// tier for storefronts that render prices client-side. One instance is
// shared; each Render call gets its own browser context.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// RenderOptions controls a single page render.
type RenderOptions struct {
	UserAgent   string
	Proxy       string
	Timeout     time.Duration
	SettleDelay time.Duration
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: b,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// Render navigates to the URL with JavaScript enabled and returns the
// fully rendered HTML after a settle delay.
func (b *Browser) Render(ctx context.Context, url string, opts RenderOptions) (string, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}

	contextOpts := playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = &opts.UserAgent
	}
	if opts.Proxy != "" {
		contextOpts.Proxy = &playwright.Proxy{Server: opts.Proxy}
	}

	bctx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	// Let client-side rendering finish before capturing the DOM.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(opts.SettleDelay):
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	b.logger.Debug("rendered page", "url", url, "bytes", len(html))

	return html, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
