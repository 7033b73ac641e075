package stores

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/parser"
)

// Product-card selector families tried against unknown storefronts.
var genericProductSelectors = []string{
	".product",
	".product-card",
	".product-item",
	"[data-product]",
	".products .item",
	".product-list .item",
	"article.product",
	".grid-item.product",
	".collection-product",
}

var genericPriceSelectors = []string{
	"[itemprop='price']",
	".price",
	".product-price",
	".current-price",
	".sale-price",
	".regular-price",
	"[data-price]",
	".money",
}

var genericTitleSelectors = []string{
	"[itemprop='name']",
	".product-title",
	".product-name",
	"h2.title",
	"h3.title",
	".product-card__title",
	".product-item__title",
}

var genericImageSelectors = []string{
	"[itemprop='image']",
	".product-image img",
	".product-img img",
	".product-card__image img",
	"img.product-image",
	"picture img",
}

// GenericHandler is the handler of last resort: common product-card
// class names first, schema.org JSON-LD second. It never fails; total
// extraction failure is an empty list.
type GenericHandler struct {
	client *fetch.Client
	logger *slog.Logger
}

func NewGenericHandler(client *fetch.Client) *GenericHandler {
	return &GenericHandler{
		client: client,
		logger: slog.Default().With("component", "generic_handler"),
	}
}

func (h *GenericHandler) Platform() string { return models.PlatformCustom }

func (h *GenericHandler) Close() error { return h.client.Close() }

func (h *GenericHandler) Detect(ctx context.Context, storeURL string) bool {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == "https" && parsed.Host != ""
}

func (h *GenericHandler) FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error) {
	html, err := h.client.Get(ctx, storeURL)
	if err != nil {
		return nil, nil
	}

	products := h.parseProducts(html, storeURL)

	return truncate(filterByKeyword(products, keyword), limit), nil
}

func (h *GenericHandler) parseProducts(html, base string) []models.DiscoveredProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var products []models.DiscoveredProduct

	for _, selector := range genericProductSelectors {
		cards := doc.Find(selector)

		// A single match is more likely page chrome than a catalog grid.
		if cards.Length() < 2 {
			continue
		}

		cards.Each(func(_ int, card *goquery.Selection) {
			if p, ok := h.parseProductCard(card, base); ok {
				products = append(products, p)
			}
		})

		if len(products) > 0 {
			break
		}
	}

	if len(products) == 0 {
		products = h.parseSchemaProducts(doc, base)
	}

	return products
}

func (h *GenericHandler) parseProductCard(card *goquery.Selection, base string) (models.DiscoveredProduct, bool) {
	var name string
	for _, selector := range genericTitleSelectors {
		if name = strings.TrimSpace(card.Find(selector).First().Text()); name != "" {
			break
		}
	}
	if name == "" {
		name = strings.TrimSpace(card.Find("h1, h2, h3, h4, a").First().Text())
	}
	if name == "" {
		return models.DiscoveredProduct{}, false
	}

	productURL := ""
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		productURL = resolveURL(base, href)
	}

	imageURL := ""
	for _, selector := range genericImageSelectors {
		img := card.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		if src := imgSrc(img); src != "" {
			imageURL = resolveURL(base, src)
			break
		}
	}
	if imageURL == "" {
		if src := imgSrc(card.Find("img").First()); src != "" {
			imageURL = resolveURL(base, src)
		}
	}

	price, currency := h.extractPrice(card)

	return models.DiscoveredProduct{
		Name:       name,
		Price:      price,
		Currency:   currency,
		ImageURL:   imageURL,
		ProductURL: productURL,
		Platform:   models.PlatformCustom,
		InStock:    true,
	}, true
}

func imgSrc(img *goquery.Selection) string {
	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := img.Attr("data-src"); ok && src != "" {
		return src
	}
	return ""
}

func (h *GenericHandler) extractPrice(card *goquery.Selection) (*decimal.Decimal, string) {
	for _, selector := range genericPriceSelectors {
		el := card.Find(selector).First()
		if el.Length() == 0 {
			continue
		}

		// schema.org microdata carries the machine-readable value in a
		// content attribute.
		if content, ok := el.Attr("content"); ok && content != "" {
			if amount, err := decimal.NewFromString(content); err == nil && amount.IsPositive() {
				return &amount, "USD"
			}
		}

		price, currency := parser.ParsePrice(strings.TrimSpace(el.Text()))
		if price != nil && price.IsPositive() {
			return price, currency
		}
	}

	return nil, "USD"
}

func (h *GenericHandler) parseSchemaProducts(doc *goquery.Document, base string) []models.DiscoveredProduct {
	var products []models.DiscoveredProduct

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			return
		}

		for _, item := range schemaItems(data) {
			if p, ok := h.parseSchemaProduct(item, base); ok {
				products = append(products, p)
			}
		}
	})

	return products
}

// schemaItems flattens a JSON-LD document into candidate product nodes:
// a bare Product, an array of them, or an ItemList.
func schemaItems(data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		var items []map[string]any
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	case map[string]any:
		switch v["@type"] {
		case "Product":
			return []map[string]any{v}
		case "ItemList":
			if list, ok := v["itemListElement"].([]any); ok {
				var items []map[string]any
				for _, el := range list {
					if m, ok := el.(map[string]any); ok {
						items = append(items, m)
					}
				}
				return items
			}
		}
	}
	return nil
}

func (h *GenericHandler) parseSchemaProduct(data map[string]any, base string) (models.DiscoveredProduct, bool) {
	// ItemList entries wrap the product in an item field.
	if item, ok := data["item"].(map[string]any); ok {
		data = item
	}

	name, _ := data["name"].(string)
	if name == "" {
		return models.DiscoveredProduct{}, false
	}

	productURL, _ := data["url"].(string)
	if productURL != "" {
		productURL = resolveURL(base, productURL)
	}

	imageURL := schemaImage(data["image"])

	offers := data["offers"]
	if list, ok := offers.([]any); ok && len(list) > 0 {
		offers = list[0]
	}

	var price *decimal.Decimal
	currency := "USD"

	if offer, ok := offers.(map[string]any); ok {
		if code, ok := offer["priceCurrency"].(string); ok && code != "" {
			currency = code
		}

		switch v := offer["price"].(type) {
		case string:
			if amount, err := decimal.NewFromString(v); err == nil {
				price = &amount
			}
		case float64:
			amount := decimal.NewFromFloat(v)
			price = &amount
		}
	}

	sku, _ := data["sku"].(string)

	return models.DiscoveredProduct{
		Name:       name,
		Price:      price,
		Currency:   currency,
		ImageURL:   imageURL,
		ProductURL: productURL,
		Platform:   models.PlatformCustom,
		SKU:        sku,
		InStock:    true,
	}, true
}

func schemaImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	case map[string]any:
		if s, ok := img["url"].(string); ok {
			return s
		}
	}
	return ""
}
