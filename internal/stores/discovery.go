package stores

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/urlcheck"
)

const maxErrorLen = 200

// PlatformDetector resolves a store URL to the handler that owns it.
type PlatformDetector interface {
	Detect(ctx context.Context, storeURL string) Handler
}

// Discoverer runs the full product discovery pipeline: normalize the
// URL, screen it for SSRF, detect the platform, fetch the catalog.
// It never returns an error to the caller; every failure is folded
// into the DiscoveryResult so one bad store can't take down a batch.
type Discoverer struct {
	validator urlcheck.Validator
	detector  PlatformDetector
	logger    *slog.Logger
}

func NewDiscoverer(validator urlcheck.Validator, detector PlatformDetector) *Discoverer {
	return &Discoverer{
		validator: validator,
		detector:  detector,
		logger:    slog.Default().With("component", "store_discovery"),
	}
}

// Discover fetches up to limit products from storeURL, optionally
// filtered by keyword.
func (d *Discoverer) Discover(ctx context.Context, storeURL, keyword string, limit int) models.DiscoveryResult {
	normalized, err := urlcheck.Normalize(storeURL)
	if err != nil {
		return failedResult(storeURL, fmt.Sprintf("invalid store URL: %v", err))
	}

	if err := d.validator.Validate(normalized); err != nil {
		return failedResult(normalized, fmt.Sprintf("store URL rejected: %v", err))
	}

	handler := d.detector.Detect(ctx, normalized)
	defer func() {
		if err := handler.Close(); err != nil {
			d.logger.Warn("failed to close handler", "platform", handler.Platform(), "error", err)
		}
	}()

	d.logger.Info("starting discovery",
		"url", normalized,
		"platform", handler.Platform(),
		"keyword", keyword,
		"limit", limit)

	products, err := d.safeFetch(ctx, handler, normalized, keyword, limit)
	if err != nil {
		d.logger.Error("discovery failed", "url", normalized, "platform", handler.Platform(), "error", err)
		return failedResult(normalized, err.Error())
	}

	d.logger.Info("discovery finished",
		"url", normalized,
		"platform", handler.Platform(),
		"total_found", len(products))

	return models.DiscoveryResult{
		Platform:   handler.Platform(),
		StoreURL:   normalized,
		TotalFound: len(products),
		Products:   products,
	}
}

// DiscoverSingleProduct resolves a single product page, returning the
// first product the platform handler can extract from it.
func (d *Discoverer) DiscoverSingleProduct(ctx context.Context, productURL string) models.DiscoveryResult {
	return d.Discover(ctx, productURL, "", 1)
}

// safeFetch converts handler panics into errors so Discover keeps its
// no-raise contract.
func (d *Discoverer) safeFetch(ctx context.Context, h Handler, storeURL, keyword string, limit int) (products []models.DiscoveredProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			products = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.FetchProducts(ctx, storeURL, keyword, limit)
}

func failedResult(storeURL, msg string) models.DiscoveryResult {
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return models.DiscoveryResult{
		Platform: models.PlatformUnknown,
		StoreURL: storeURL,
		Products: []models.DiscoveredProduct{},
		Error:    msg,
	}
}
