package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/parser"
)

// Price selector cascades for retailers recognized by hostname. Order
// matters: the most reliable selector for each site comes first.
var retailerPriceSelectors = map[string][]string{
	"amazon": {
		".a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		".a-price-whole",
		"[data-a-color='price'] .a-offscreen",
	},
	"ebay": {
		".x-price-primary span",
		"#prcIsum",
		".display-price",
		"[itemprop='price']",
	},
	"walmart": {
		"[itemprop='price']",
		".price-characteristic",
		"[data-automation='buybox-price']",
	},
}

// Cascades for platforms recognized by page markup rather than hostname.
var shopifyPriceSelectors = []string{
	".price__current .money",
	".product__price .money",
	".product-price .money",
	"[data-product-price]",
	".price-item--regular",
	".price-item--sale",
	".ProductMeta__Price",
	".product-single__price",
}

var wooPriceSelectors = []string{
	".woocommerce-Price-amount bdi",
	".woocommerce-Price-amount",
	".price ins .amount",
	".price .amount",
	".summary .price",
	"p.price span.amount",
}

var fallbackPriceSelectors = []string{
	"[itemprop='price']",
	"[data-price]",
	"[data-product-price]",
	"meta[property='product:price:amount']",
	".price",
	".product-price",
	".current-price",
	".sale-price",
	".regular-price",
	"#product-price",
	".price-value",
	".amount",
}

// retailerFor classifies a product URL by hostname.
func retailerFor(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	hostname := strings.ToLower(parsed.Hostname())
	switch {
	case strings.Contains(hostname, "amazon"):
		return "amazon"
	case strings.Contains(hostname, "ebay"):
		return "ebay"
	case strings.Contains(hostname, "walmart"):
		return "walmart"
	default:
		return "unknown"
	}
}

// selectorsFor builds the cascade for one page: retailer selectors when
// the hostname is recognized, platform selectors when the markup carries
// a platform signature, and the fallback cascade always appended last.
func selectorsFor(rawURL, html string) []string {
	var selectors []string

	if retailer := retailerFor(rawURL); retailer != "unknown" {
		selectors = append(selectors, retailerPriceSelectors[retailer]...)
	} else {
		lower := strings.ToLower(html)
		switch {
		case strings.Contains(lower, "shopify") || strings.Contains(lower, "cdn.shopify"):
			selectors = append(selectors, shopifyPriceSelectors...)
		case strings.Contains(lower, "woocommerce") || strings.Contains(lower, "wc-block"):
			selectors = append(selectors, wooPriceSelectors...)
		}
	}

	return append(selectors, fallbackPriceSelectors...)
}

// extractPrice runs the cascade over the page and returns the first
// strictly positive price it can parse, checking every element a
// selector matches before moving to the next selector. Meta selectors
// carry the value in their content attribute instead of text.
func extractPrice(html string, selectors []string) (*decimal.Decimal, string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", false
	}

	var (
		price    *decimal.Decimal
		currency string
		found    bool
	)
	for _, selector := range selectors {
		doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.Text())
			if strings.HasPrefix(selector, "meta") {
				text, _ = el.Attr("content")
				text = strings.TrimSpace(text)
			} else if text == "" {
				// Microdata nodes sometimes hold the value in content only.
				if content, ok := el.Attr("content"); ok {
					text = strings.TrimSpace(content)
				}
			}
			if text == "" {
				return true
			}

			if p, c := parser.ParsePrice(text); p != nil && p.IsPositive() {
				price, currency, found = p, c, true
				return false
			}
			return true
		})
		if found {
			return price, currency, true
		}
	}

	return nil, "", false
}
