package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/models"
)

const wooPageSize = 100

// REST endpoints probed in order of preference. The Store API exposes
// prices in integer minor units; v3/v2 return decimal strings.
var wooEndpoints = []string{
	"/wp-json/wc/store/products",
	"/wp-json/wc/v3/products",
	"/wp-json/wc/v2/products",
}

type WooCommerceHandler struct {
	client   *fetch.Client
	maxFetch int
	logger   *slog.Logger
}

func NewWooCommerceHandler(client *fetch.Client, maxFetch int) *WooCommerceHandler {
	return &WooCommerceHandler{
		client:   client,
		maxFetch: maxFetch,
		logger:   slog.Default().With("component", "woocommerce_handler"),
	}
}

func (h *WooCommerceHandler) Platform() string { return models.PlatformWooCommerce }

func (h *WooCommerceHandler) Close() error { return h.client.Close() }

func (h *WooCommerceHandler) Detect(ctx context.Context, storeURL string) bool {
	return h.findWorkingEndpoint(ctx, baseURL(storeURL)) != ""
}

func (h *WooCommerceHandler) findWorkingEndpoint(ctx context.Context, base string) string {
	for _, endpoint := range wooEndpoints {
		body, err := h.client.GetJSON(ctx, base+endpoint+"?per_page=1")
		if err != nil {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			continue
		}

		if len(items) > 0 {
			return endpoint
		}
	}

	return ""
}

func (h *WooCommerceHandler) FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error) {
	base := baseURL(storeURL)

	endpoint := h.findWorkingEndpoint(ctx, base)
	if endpoint == "" {
		return nil, nil
	}

	isStoreAPI := endpoint == wooEndpoints[0]

	var products []models.DiscoveredProduct
	page := 1

	for len(products) < h.maxFetch {
		pageURL := fmt.Sprintf("%s%s?per_page=%d&page=%d", base, endpoint, wooPageSize, page)

		body, err := h.client.GetJSON(ctx, pageURL)
		if err != nil {
			break
		}

		var items []json.RawMessage
		if err := json.Unmarshal([]byte(body), &items); err != nil || len(items) == 0 {
			break
		}

		for _, item := range items {
			var p models.DiscoveredProduct
			var ok bool
			if isStoreAPI {
				p, ok = parseWooStoreProduct(item, base)
			} else {
				p, ok = parseWooRESTProduct(item, base)
			}
			if ok {
				products = append(products, p)
			}
		}

		page++
	}

	filtered := filterByKeyword(products, keyword)

	return truncate(filtered, limit), nil
}

type wooStoreProduct struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	Permalink string      `json:"permalink"`
	SKU       string      `json:"sku"`
	IsInStock *bool       `json:"is_in_stock"`
	ShortDesc string      `json:"short_description"`
	Desc      string      `json:"description"`
	Images    []struct {
		Src string `json:"src"`
	} `json:"images"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Prices struct {
		Price             string `json:"price"`
		CurrencyCode      string `json:"currency_code"`
		CurrencyMinorUnit int    `json:"currency_minor_unit"`
	} `json:"prices"`
}

func parseWooStoreProduct(raw json.RawMessage, base string) (models.DiscoveredProduct, bool) {
	var data wooStoreProduct
	if err := json.Unmarshal(raw, &data); err != nil || data.Name == "" {
		return models.DiscoveredProduct{}, false
	}

	productURL := data.Permalink
	if productURL == "" {
		productURL = resolveURL(base, "/product/"+data.Slug)
	}

	p := models.DiscoveredProduct{
		Name:       data.Name,
		Currency:   "USD",
		ProductURL: productURL,
		Platform:   models.PlatformWooCommerce,
		VariantID:  data.ID.String(),
		SKU:        data.SKU,
		InStock:    true,
	}

	if data.Prices.CurrencyCode != "" {
		p.Currency = data.Prices.CurrencyCode
	}

	if data.Prices.Price != "" {
		if minor, err := decimal.NewFromString(data.Prices.Price); err == nil {
			amount := minor.Shift(int32(-data.Prices.CurrencyMinorUnit))
			p.Price = &amount
		}
	}

	if data.IsInStock != nil {
		p.InStock = *data.IsInStock
	}

	if len(data.Images) > 0 {
		p.ImageURL = data.Images[0].Src
	}

	p.Description = data.Desc
	if p.Description == "" {
		p.Description = data.ShortDesc
	}

	for _, cat := range data.Categories {
		if cat.Name != "" {
			p.Tags = append(p.Tags, cat.Name)
		}
	}

	return p, true
}

type wooRESTProduct struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	Permalink string      `json:"permalink"`
	SKU       string      `json:"sku"`
	Price     string      `json:"price"`
	InStock   *bool       `json:"in_stock"`
	ShortDesc string      `json:"short_description"`
	Desc      string      `json:"description"`
	Images    []struct {
		Src string `json:"src"`
	} `json:"images"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

func parseWooRESTProduct(raw json.RawMessage, base string) (models.DiscoveredProduct, bool) {
	var data wooRESTProduct
	if err := json.Unmarshal(raw, &data); err != nil || data.Name == "" {
		return models.DiscoveredProduct{}, false
	}

	productURL := data.Permalink
	if productURL == "" {
		productURL = resolveURL(base, "/product/"+data.Slug)
	}

	p := models.DiscoveredProduct{
		Name:       data.Name,
		Currency:   "USD",
		ProductURL: productURL,
		Platform:   models.PlatformWooCommerce,
		VariantID:  data.ID.String(),
		SKU:        data.SKU,
		InStock:    true,
	}

	if data.Price != "" {
		if amount, err := decimal.NewFromString(data.Price); err == nil {
			p.Price = &amount
		}
	}

	if data.InStock != nil {
		p.InStock = *data.InStock
	}

	if len(data.Images) > 0 {
		p.ImageURL = data.Images[0].Src
	}

	p.Description = data.Desc
	if p.Description == "" {
		p.Description = data.ShortDesc
	}

	for _, cat := range data.Categories {
		if cat.Name != "" {
			p.Tags = append(p.Tags, cat.Name)
		}
	}
	for _, tag := range data.Tags {
		if tag.Name != "" {
			p.Tags = append(p.Tags, tag.Name)
		}
	}

	return p, true
}
