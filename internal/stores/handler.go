package stores

import (
	"context"
	"net/url"
	"strings"

	"github.com/pricehawk/price-monitor/internal/models"
)

// Handler is a strategy for one e-commerce platform family: it can claim
// a storefront URL and extract a product catalog from it. Detect may
// probe the network. Each handler owns one HTTP client for its lifetime;
// Close releases it exactly once.
type Handler interface {
	Detect(ctx context.Context, storeURL string) bool
	FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error)
	Platform() string
	Close() error
}

// baseURL reduces a URL to scheme://host.
func baseURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

// resolveURL makes href absolute against base.
func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}

	baseParsed, err := url.Parse(base)
	if err != nil {
		return href
	}

	refParsed, err := url.Parse(href)
	if err != nil {
		return href
	}

	return baseParsed.ResolveReference(refParsed).String()
}

// hostMatchesDomain reports whether hostname is domain or a subdomain of it.
func hostMatchesDomain(hostname, domain string) bool {
	return hostname == domain || strings.HasSuffix(hostname, "."+domain)
}

// filterByKeyword keeps products where at least one keyword word appears
// in the name, product type, tags, or description (case-insensitive).
// An empty keyword keeps everything.
func filterByKeyword(products []models.DiscoveredProduct, keyword string) []models.DiscoveredProduct {
	words := strings.Fields(strings.ToLower(keyword))
	if len(words) == 0 {
		return products
	}

	filtered := make([]models.DiscoveredProduct, 0, len(products))
	for _, p := range products {
		searchable := strings.ToLower(strings.Join([]string{
			p.Name,
			p.ProductType,
			strings.Join(p.Tags, " "),
			p.Description,
		}, " "))

		for _, word := range words {
			if strings.Contains(searchable, word) {
				filtered = append(filtered, p)
				break
			}
		}
	}

	return filtered
}

// truncate caps a product list at limit; limit <= 0 means no cap.
func truncate(products []models.DiscoveredProduct, limit int) []models.DiscoveredProduct {
	if limit > 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}
