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

var ebayDomains = []string{
	"ebay.com", "ebay.co.uk", "ebay.de", "ebay.fr",
	"ebay.it", "ebay.es", "ebay.com.au", "ebay.ca",
}

var ebayStorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/str/`),
	regexp.MustCompile(`/sch/`),
	regexp.MustCompile(`/b/`),
	regexp.MustCompile(`/usr/`),
}

var ebayCardSelectors = []string{
	".s-item",
	".srp-results .s-item__wrapper",
}

var ebayItemIDRe = regexp.MustCompile(`/itm/(\d+)`)

type EbayHandler struct {
	client *fetch.Client
	logger *slog.Logger
}

func NewEbayHandler(client *fetch.Client) *EbayHandler {
	return &EbayHandler{
		client: client,
		logger: slog.Default().With("component", "ebay_handler"),
	}
}

func (h *EbayHandler) Platform() string { return models.PlatformEbay }

func (h *EbayHandler) Close() error { return h.client.Close() }

func (h *EbayHandler) Detect(ctx context.Context, storeURL string) bool {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(parsed.Hostname())

	isEbay := false
	for _, domain := range ebayDomains {
		if hostMatchesDomain(hostname, domain) {
			isEbay = true
			break
		}
	}
	if !isEbay {
		return false
	}

	for _, pattern := range ebayStorePatterns {
		if pattern.MatchString(parsed.Path) {
			return true
		}
	}

	return false
}

func (h *EbayHandler) FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error) {
	fetchURL := setQueryParam(storeURL, "_nkw", keyword)

	var products []models.DiscoveredProduct
	page := 1
	maxPages := limit/50 + 1

	for len(products) < limit && page <= maxPages {
		pageURL := fetchURL
		if page > 1 {
			pageURL = setQueryParam(fetchURL, "_pgn", strconv.Itoa(page))
		}

		html, err := h.client.Get(ctx, pageURL)
		if err != nil {
			break
		}

		pageProducts := h.parseSearchResults(html)
		if len(pageProducts) == 0 {
			break
		}

		products = append(products, pageProducts...)
		page++
	}

	return truncate(products, limit), nil
}

func (h *EbayHandler) parseSearchResults(html string) []models.DiscoveredProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var products []models.DiscoveredProduct

	for _, selector := range ebayCardSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}

		cards.Each(func(_ int, card *goquery.Selection) {
			if p, ok := h.parseListingCard(card); ok {
				products = append(products, p)
			}
		})
		break
	}

	return products
}

func (h *EbayHandler) parseListingCard(card *goquery.Selection) (models.DiscoveredProduct, bool) {
	name := strings.TrimSpace(card.Find(".s-item__title").First().Text())

	// eBay pads result pages with a placeholder card.
	if name == "" || strings.EqualFold(name, "shop on ebay") {
		return models.DiscoveredProduct{}, false
	}

	productURL, _ := card.Find(".s-item__link, a.s-item__link").First().Attr("href")
	if productURL == "" {
		return models.DiscoveredProduct{}, false
	}

	itemID := ""
	if m := ebayItemIDRe.FindStringSubmatch(productURL); len(m) == 2 {
		itemID = m[1]
	}

	imageURL, _ := card.Find(".s-item__image-img, img.s-item__image-img").First().Attr("src")

	price, currency := h.extractPrice(card)

	return models.DiscoveredProduct{
		Name:       name,
		Price:      price,
		Currency:   currency,
		ImageURL:   imageURL,
		ProductURL: productURL,
		Platform:   models.PlatformEbay,
		VariantID:  itemID,
		InStock:    true,
	}, true
}

var ebayPriceSelectors = []string{
	".s-item__price",
	".s-item__price span.POSITIVE",
	"[itemprop='price']",
}

func (h *EbayHandler) extractPrice(card *goquery.Selection) (*decimal.Decimal, string) {
	for _, selector := range ebayPriceSelectors {
		text := strings.TrimSpace(card.Find(selector).First().Text())
		if text == "" {
			continue
		}

		// Price ranges take the lower bound.
		if idx := strings.Index(text, " to "); idx > 0 {
			text = text[:idx]
		}

		price, currency := parser.ParsePrice(text)
		if price != nil && price.IsPositive() {
			return price, currency
		}
	}

	return nil, "USD"
}
