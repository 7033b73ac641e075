package stores

import (
	"context"
	"log/slog"

	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/models"
)

// Detector probes a store URL against each platform handler in priority
// order and returns the first one that recognizes it. The generic
// handler is the fallback, so detection never comes back empty-handed.
type Detector struct {
	newClient func() *fetch.Client
	maxFetch  int
	logger    *slog.Logger
}

// NewDetector builds a detector. newClient is called once per handler
// so each probe gets its own connection pool; maxFetch caps how many
// products any handler will collect before keyword filtering.
func NewDetector(newClient func() *fetch.Client, maxFetch int) *Detector {
	return &Detector{
		newClient: newClient,
		maxFetch:  maxFetch,
		logger:    slog.Default().With("component", "platform_detector"),
	}
}

// candidates returns fresh handlers in detection priority order. API
// probes (Shopify, WooCommerce) come before URL-pattern matchers so a
// WooCommerce store on a .myshopify-looking domain still detects right.
func (d *Detector) candidates() []Handler {
	return []Handler{
		NewShopifyHandler(d.newClient(), d.maxFetch),
		NewWooCommerceHandler(d.newClient(), d.maxFetch),
		NewAmazonHandler(d.newClient()),
		NewEbayHandler(d.newClient()),
	}
}

// Detect returns the handler that claims storeURL. Handlers that lose
// the race or blow up during probing are closed and skipped. The caller
// owns the returned handler and must Close it.
func (d *Detector) Detect(ctx context.Context, storeURL string) Handler {
	for _, h := range d.candidates() {
		if d.safeDetect(ctx, h, storeURL) {
			d.logger.Info("platform detected", "platform", h.Platform(), "url", storeURL)
			return h
		}
		if err := h.Close(); err != nil {
			d.logger.Warn("failed to close handler", "platform", h.Platform(), "error", err)
		}
	}

	d.logger.Info("no platform matched, using generic handler", "url", storeURL)
	return NewGenericHandler(d.newClient())
}

// safeDetect shields the cascade from a misbehaving handler: a panic in
// one probe just means that platform is skipped.
func (d *Detector) safeDetect(ctx context.Context, h Handler, storeURL string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked during detection", "platform", h.Platform(), "panic", r)
			matched = false
		}
	}()
	return h.Detect(ctx, storeURL)
}

// HandlerForPlatform returns a fresh handler for a known platform name,
// falling back to the generic handler for anything unrecognized.
func (d *Detector) HandlerForPlatform(platform string) Handler {
	switch platform {
	case models.PlatformShopify:
		return NewShopifyHandler(d.newClient(), d.maxFetch)
	case models.PlatformWooCommerce:
		return NewWooCommerceHandler(d.newClient(), d.maxFetch)
	case models.PlatformAmazon:
		return NewAmazonHandler(d.newClient())
	case models.PlatformEbay:
		return NewEbayHandler(d.newClient())
	default:
		return NewGenericHandler(d.newClient())
	}
}
