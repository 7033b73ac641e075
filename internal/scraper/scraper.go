package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricehawk/price-monitor/internal/browser"
	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/ratelimit"
	"github.com/pricehawk/price-monitor/internal/urlcheck"
)

const (
	maxErrorLen    = 200
	noPriceMessage = "could not extract price from page"
)

// Fetcher is one HTTP fetch attempt surface; *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (string, error)
	Close() error
}

// FetcherFactory builds a Fetcher bound to one proxy. An empty proxy
// string means a direct connection.
type FetcherFactory func(proxy string) (Fetcher, error)

// Renderer is the headless-browser fetch tier; *browser.Browser
// satisfies it. A nil Renderer disables the tier.
type Renderer interface {
	Render(ctx context.Context, rawURL string, opts browser.RenderOptions) (string, error)
}

// ProxyChain yields the proxy fallback chain for one scrape attempt.
type ProxyChain interface {
	ListWithDirect(ctx context.Context) []string
}

// Scraper extracts a single product price from an arbitrary product
// page. It tries plain HTTP through each proxy first and escalates to
// headless rendering only when every HTTP attempt came up empty.
type Scraper struct {
	validator urlcheck.Validator
	proxies   ProxyChain
	fetcher   FetcherFactory
	renderer  Renderer
	limiter   ratelimit.Limiter
	renderOps browser.RenderOptions
	logger    *slog.Logger
}

type Options struct {
	Validator urlcheck.Validator
	Proxies   ProxyChain
	Fetcher   FetcherFactory
	Renderer  Renderer
	Limiter   ratelimit.Limiter
	// RenderTimeout and SettleDelay tune the browser tier.
	RenderTimeout time.Duration
	SettleDelay   time.Duration
}

func New(opts Options) *Scraper {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewJitterLimiter(2*time.Second, 5*time.Second)
	}

	return &Scraper{
		validator: opts.Validator,
		proxies:   opts.Proxies,
		fetcher:   opts.Fetcher,
		renderer:  opts.Renderer,
		limiter:   limiter,
		renderOps: browser.RenderOptions{
			Timeout:     opts.RenderTimeout,
			SettleDelay: opts.SettleDelay,
		},
		logger: slog.Default().With("component", "scraper"),
	}
}

// ScrapeURL runs the full extraction pipeline for one product URL.
// It never returns an error: every failure mode collapses into a
// failed ScrapeResult with a bounded message.
func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string) models.ScrapeResult {
	normalized, err := urlcheck.Normalize(rawURL)
	if err != nil {
		return failedScrape(fmt.Sprintf("invalid product URL: %v", err))
	}

	if err := s.validator.Validate(normalized); err != nil {
		return failedScrape(fmt.Sprintf("product URL rejected: %v", err))
	}

	// Courtesy delay so repeated checks do not hammer the target.
	if err := s.limiter.Wait(ctx); err != nil {
		return failedScrape(err.Error())
	}

	proxies := s.proxies.ListWithDirect(ctx)

	result, lastErr, ok := s.scrapeViaHTTP(ctx, normalized, proxies)
	if ok {
		return result
	}

	if s.renderer != nil {
		result, renderErr, ok := s.scrapeViaBrowser(ctx, normalized, proxies)
		if ok {
			return result
		}
		if renderErr != "" {
			lastErr = renderErr
		}
	}

	s.logger.Warn("all scrape tiers exhausted", "url", normalized)
	if lastErr != "" {
		return failedScrape(lastErr)
	}
	return failedScrape(noPriceMessage)
}

func (s *Scraper) scrapeViaHTTP(ctx context.Context, rawURL string, proxies []string) (models.ScrapeResult, string, bool) {
	var lastErr string
	for _, proxy := range proxies {
		client, err := s.fetcher(proxy)
		if err != nil {
			s.logger.Warn("failed to build fetch client", "proxy", proxyLabel(proxy), "error", err)
			lastErr = err.Error()
			continue
		}

		html, err := client.Get(ctx, rawURL)
		_ = client.Close()
		if err != nil {
			s.logger.Debug("http fetch failed", "url", rawURL, "proxy", proxyLabel(proxy), "error", err)
			lastErr = err.Error()
			continue
		}

		if price, currency, ok := extractPrice(html, selectorsFor(rawURL, html)); ok {
			s.logger.Info("price extracted via http", "url", rawURL, "price", price.String(), "currency", currency)
			return models.ScrapeResult{
				Price:    price,
				Currency: currency,
				Status:   models.StatusSuccess,
			}, "", true
		}
	}

	return models.ScrapeResult{}, lastErr, false
}

func (s *Scraper) scrapeViaBrowser(ctx context.Context, rawURL string, proxies []string) (models.ScrapeResult, string, bool) {
	var lastErr string
	for _, proxy := range proxies {
		opts := s.renderOps
		opts.Proxy = proxy

		html, err := s.renderer.Render(ctx, rawURL, opts)
		if err != nil {
			s.logger.Debug("browser render failed", "url", rawURL, "proxy", proxyLabel(proxy), "error", err)
			lastErr = err.Error()
			continue
		}

		if price, currency, ok := extractPrice(html, selectorsFor(rawURL, html)); ok {
			s.logger.Info("price extracted via browser", "url", rawURL, "price", price.String(), "currency", currency)
			return models.ScrapeResult{
				Price:    price,
				Currency: currency,
				Status:   models.StatusSuccess,
			}, "", true
		}
	}

	return models.ScrapeResult{}, lastErr, false
}

func failedScrape(msg string) models.ScrapeResult {
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return models.ScrapeResult{
		Currency:     "USD",
		Status:       models.StatusFailed,
		ErrorMessage: msg,
	}
}

// proxyLabel keeps proxy credentials out of the logs.
func proxyLabel(proxy string) string {
	if proxy == "" {
		return "direct"
	}
	return "proxy"
}
