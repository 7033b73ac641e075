package stores

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/parser"
)

var amazonDomains = []string{
	"amazon.com", "amazon.co.uk", "amazon.de", "amazon.fr",
	"amazon.ca", "amazon.it", "amazon.es", "amazon.com.au",
	"amazon.co.jp", "amazon.in", "amazon.com.mx", "amazon.com.br",
}

// Store/brand/search page shapes. Single product pages are excluded on
// purpose: this handler is discovery-only.
var amazonStorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/stores/`),
	regexp.MustCompile(`/s\?`),
	regexp.MustCompile(`/s/`),
	regexp.MustCompile(`/brand/`),
	regexp.MustCompile(`/gp/browse`),
}

var amazonCardSelectors = []string{
	"[data-component-type='s-search-result']",
	".s-result-item[data-asin]",
	".sg-col-inner .s-widget-container",
}

type AmazonHandler struct {
	client *fetch.Client
	logger *slog.Logger
}

func NewAmazonHandler(client *fetch.Client) *AmazonHandler {
	return &AmazonHandler{
		client: client,
		logger: slog.Default().With("component", "amazon_handler"),
	}
}

func (h *AmazonHandler) Platform() string { return models.PlatformAmazon }

func (h *AmazonHandler) Close() error { return h.client.Close() }

func (h *AmazonHandler) Detect(ctx context.Context, storeURL string) bool {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(parsed.Hostname())

	isAmazon := false
	for _, domain := range amazonDomains {
		if hostMatchesDomain(hostname, domain) {
			isAmazon = true
			break
		}
	}
	if !isAmazon {
		return false
	}

	fullPath := parsed.Path
	if parsed.RawQuery != "" {
		fullPath += "?" + parsed.RawQuery
	}

	for _, pattern := range amazonStorePatterns {
		if pattern.MatchString(fullPath) {
			return true
		}
	}

	return false
}

func (h *AmazonHandler) FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error) {
	base := baseURL(storeURL)
	fetchURL := setQueryParam(storeURL, "k", keyword)

	var products []models.DiscoveredProduct
	page := 1
	maxPages := limit/20 + 1

	for len(products) < limit && page <= maxPages {
		pageURL := fetchURL
		if page > 1 {
			pageURL = setQueryParam(fetchURL, "page", strconv.Itoa(page))
		}

		html, err := h.client.Get(ctx, pageURL)
		if err != nil {
			break
		}

		pageProducts := h.parseSearchResults(html, base)
		if len(pageProducts) == 0 {
			break
		}

		products = append(products, pageProducts...)
		page++
	}

	return truncate(products, limit), nil
}

func (h *AmazonHandler) parseSearchResults(html, base string) []models.DiscoveredProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var products []models.DiscoveredProduct

	for _, selector := range amazonCardSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}

		cards.Each(func(_ int, card *goquery.Selection) {
			if p, ok := h.parseProductCard(card, base); ok {
				products = append(products, p)
			}
		})
		break
	}

	return products
}

func (h *AmazonHandler) parseProductCard(card *goquery.Selection, base string) (models.DiscoveredProduct, bool) {
	asin, _ := card.Attr("data-asin")
	if asin == "" {
		return models.DiscoveredProduct{}, false
	}

	name := strings.TrimSpace(card.Find("h2 a span, .a-text-normal").First().Text())
	if name == "" {
		return models.DiscoveredProduct{}, false
	}

	productURL := base + "/dp/" + asin
	if href, ok := card.Find("h2 a, a.a-link-normal").First().Attr("href"); ok && href != "" {
		productURL = resolveURL(base, href)
	}

	imageURL, _ := card.Find("img.s-image, .s-product-image-container img").First().Attr("src")

	price, currency := extractCardPrice(card, []string{
		".a-price .a-offscreen",
		".a-price-whole",
		"[data-a-color='price'] .a-offscreen",
		".a-color-price",
	})

	inStock := true
	stockText := strings.ToLower(strings.TrimSpace(card.Find(".a-color-price").First().Text()))
	if strings.Contains(stockText, "unavailable") {
		inStock = false
	}

	return models.DiscoveredProduct{
		Name:       name,
		Price:      price,
		Currency:   currency,
		ImageURL:   imageURL,
		ProductURL: productURL,
		Platform:   models.PlatformAmazon,
		VariantID:  asin,
		InStock:    inStock,
	}, true
}

// extractCardPrice tries selectors in order and accepts the first
// strictly positive parsed price.
func extractCardPrice(card *goquery.Selection, selectors []string) (*decimal.Decimal, string) {
	for _, selector := range selectors {
		text := strings.TrimSpace(card.Find(selector).First().Text())
		if text == "" {
			continue
		}

		price, currency := parser.ParsePrice(text)
		if price != nil && price.IsPositive() {
			return price, currency
		}
	}

	return nil, "USD"
}

// setQueryParam returns rawURL with the query parameter set; an empty
// value leaves the URL untouched.
func setQueryParam(rawURL, key, value string) string {
	if value == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	query.Set(key, value)
	parsed.RawQuery = query.Encode()

	return parsed.String()
}
