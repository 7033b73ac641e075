package models

import (
	"github.com/shopspring/decimal"
)

// Platform tags used across discovery and scraping.
const (
	PlatformShopify     = "shopify"
	PlatformWooCommerce = "woocommerce"
	PlatformAmazon      = "amazon"
	PlatformEbay        = "ebay"
	PlatformCustom      = "custom"
	PlatformUnknown     = "unknown"
)

// Scrape statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DiscoveredProduct is one catalog item found during store discovery.
// A nil Price means the price could not be determined; it must never be
// treated as zero/free. Instances are transient: the caller decides
// whether to persist one as a tracked competitor.
type DiscoveredProduct struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Currency    string           `json:"currency"`
	ImageURL    string           `json:"image_url,omitempty"`
	ProductURL  string           `json:"product_url"`
	Platform    string           `json:"platform"`
	VariantID   string           `json:"variant_id,omitempty"`
	SKU         string           `json:"sku,omitempty"`
	InStock     bool             `json:"in_stock"`
	ProductType string           `json:"product_type,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Description string           `json:"description,omitempty"`
}

// ScrapeResult is the outcome of one price extraction attempt.
// Status success implies Price != nil; failed implies Price == nil.
type ScrapeResult struct {
	Price        *decimal.Decimal `json:"price,omitempty"`
	Currency     string           `json:"currency"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// DiscoveryResult is the outcome of one discovery call.
type DiscoveryResult struct {
	Platform   string              `json:"platform"`
	StoreURL   string              `json:"store_url"`
	TotalFound int                 `json:"total_found"`
	Products   []DiscoveredProduct `json:"products"`
	Error      string              `json:"error,omitempty"`
}

// Change types.
const (
	ChangePriceDrop       = "price_drop"
	ChangePriceIncrease   = "price_increase"
	ChangeCurrencyChanged = "currency_changed"
)

// PriceChange is the outcome of evaluating a newly scraped price against
// the previous one for the same competitor.
type PriceChange struct {
	Type          string           `json:"type"`
	OldPrice      decimal.Decimal  `json:"old_price"`
	NewPrice      decimal.Decimal  `json:"new_price"`
	OldCurrency   string           `json:"old_currency"`
	NewCurrency   string           `json:"new_currency"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
}
