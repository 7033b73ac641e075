package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/models"
)

const shopifyPageSize = 250

// Storefront API versions tried in order. Availability varies per store;
// unstable works on more Hydrogen storefronts than the dated versions.
var storefrontAPIVersions = []string{"unstable", "2024-01", "2023-10", "2023-07"}

// ShopifyHandler extracts catalogs from Shopify stores. The fast path is
// the public /products.json API; headless (Hydrogen) storefronts that
// serve an empty catalog there fall back to the Storefront GraphQL API.
type ShopifyHandler struct {
	client   *fetch.Client
	maxFetch int
	logger   *slog.Logger
}

func NewShopifyHandler(client *fetch.Client, maxFetch int) *ShopifyHandler {
	return &ShopifyHandler{
		client:   client,
		maxFetch: maxFetch,
		logger:   slog.Default().With("component", "shopify_handler"),
	}
}

func (h *ShopifyHandler) Platform() string { return models.PlatformShopify }

func (h *ShopifyHandler) Close() error { return h.client.Close() }

func (h *ShopifyHandler) Detect(ctx context.Context, storeURL string) bool {
	probeURL := baseURL(storeURL) + "/products.json?limit=1"

	body, err := h.client.GetJSON(ctx, probeURL)
	if err != nil {
		return false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return false
	}

	_, ok := payload["products"]
	return ok
}

func (h *ShopifyHandler) FetchProducts(ctx context.Context, storeURL, keyword string, limit int) ([]models.DiscoveredProduct, error) {
	base := baseURL(storeURL)

	products := h.fetchViaProductsJSON(ctx, base)

	if len(products) == 0 {
		products = h.fetchViaStorefrontAPI(ctx, base)
	}

	// Keyword relevance cannot be judged from a truncated early slice, so
	// the filter runs over the full capped catalog, never the pagination.
	filtered := filterByKeyword(products, keyword)

	return truncate(filtered, limit), nil
}

type shopifyProduct struct {
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	BodyHTML    string `json:"body_html"`
	ProductType string `json:"product_type"`
	Tags        any    `json:"tags"`
	Images      []struct {
		Src string `json:"src"`
	} `json:"images"`
	Variants []struct {
		ID        json.Number `json:"id"`
		Price     string      `json:"price"`
		SKU       string      `json:"sku"`
		Available bool        `json:"available"`
	} `json:"variants"`
}

func (h *ShopifyHandler) fetchViaProductsJSON(ctx context.Context, base string) []models.DiscoveredProduct {
	var products []models.DiscoveredProduct
	page := 1

	for len(products) < h.maxFetch {
		pageURL := fmt.Sprintf("%s/products.json?limit=%d&page=%d", base, shopifyPageSize, page)

		body, err := h.client.GetJSON(ctx, pageURL)
		if err != nil {
			break
		}

		var payload struct {
			Products []shopifyProduct `json:"products"`
		}
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			break
		}

		if len(payload.Products) == 0 {
			break
		}

		for _, raw := range payload.Products {
			if p, ok := h.parseProduct(raw, base); ok {
				products = append(products, p)
			}
		}

		page++
	}

	return products
}

func (h *ShopifyHandler) parseProduct(raw shopifyProduct, base string) (models.DiscoveredProduct, bool) {
	if raw.Title == "" {
		return models.DiscoveredProduct{}, false
	}

	p := models.DiscoveredProduct{
		Name:        raw.Title,
		Currency:    "USD",
		ProductURL:  resolveURL(base, "/products/"+raw.Handle),
		Platform:    models.PlatformShopify,
		ProductType: raw.ProductType,
		Tags:        normalizeTags(raw.Tags),
		Description: raw.BodyHTML,
		InStock:     true,
	}

	if len(raw.Images) > 0 {
		p.ImageURL = raw.Images[0].Src
	}

	if len(raw.Variants) > 0 {
		first := raw.Variants[0]
		if amount, err := decimal.NewFromString(first.Price); err == nil {
			p.Price = &amount
		}
		p.VariantID = first.ID.String()
		p.SKU = first.SKU
		p.InStock = first.Available
	}

	return p, true
}

// normalizeTags accepts both the list form and the comma-joined string
// form Shopify uses across API surfaces.
func normalizeTags(tags any) []string {
	switch v := tags.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
		return out
	default:
		return nil
	}
}

func (h *ShopifyHandler) fetchViaStorefrontAPI(ctx context.Context, base string) []models.DiscoveredProduct {
	for _, version := range storefrontAPIVersions {
		apiURL := fmt.Sprintf("%s/api/%s/graphql.json", base, version)

		products := h.fetchStorefrontVersion(ctx, apiURL, base)
		if len(products) > 0 {
			h.logger.Debug("storefront api succeeded", "version", version, "count", len(products))
			return products
		}
	}

	return nil
}

type storefrontResponse struct {
	Errors json.RawMessage `json:"errors"`
	Data   struct {
		Products struct {
			Edges []struct {
				Node storefrontProduct `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"products"`
	} `json:"data"`
}

type storefrontProduct struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Handle      string   `json:"handle"`
	Description string   `json:"description"`
	ProductType string   `json:"productType"`
	Tags        []string `json:"tags"`
	PriceRange  struct {
		MinVariantPrice struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"minVariantPrice"`
	} `json:"priceRange"`
	Images struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID               string `json:"id"`
				SKU              string `json:"sku"`
				AvailableForSale bool   `json:"availableForSale"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (h *ShopifyHandler) fetchStorefrontVersion(ctx context.Context, apiURL, base string) []models.DiscoveredProduct {
	var products []models.DiscoveredProduct
	cursor := ""

	for len(products) < h.maxFetch {
		query := buildStorefrontQuery(shopifyPageSize, cursor)

		reqBody, err := json.Marshal(map[string]string{"query": query})
		if err != nil {
			break
		}

		body, err := h.client.PostJSON(ctx, apiURL, string(reqBody))
		if err != nil {
			break
		}

		var resp storefrontResponse
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			break
		}

		if len(resp.Errors) > 0 && string(resp.Errors) != "null" {
			break
		}

		edges := resp.Data.Products.Edges
		if len(edges) == 0 {
			break
		}

		for _, edge := range edges {
			if p, ok := h.parseStorefrontProduct(edge.Node, base); ok {
				products = append(products, p)
			}
		}

		pageInfo := resp.Data.Products.PageInfo
		if !pageInfo.HasNextPage || pageInfo.EndCursor == "" {
			break
		}
		cursor = pageInfo.EndCursor
	}

	return products
}

func buildStorefrontQuery(pageSize int, cursor string) string {
	afterClause := ""
	if cursor != "" {
		afterClause = fmt.Sprintf(", after: %q", cursor)
	}

	return fmt.Sprintf(`{
  products(first: %d%s) {
    edges {
      node {
        id
        title
        handle
        description
        productType
        tags
        priceRange {
          minVariantPrice {
            amount
            currencyCode
          }
        }
        images(first: 1) {
          edges {
            node {
              url
            }
          }
        }
        variants(first: 1) {
          edges {
            node {
              id
              availableForSale
              sku
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`, pageSize, afterClause)
}

func (h *ShopifyHandler) parseStorefrontProduct(node storefrontProduct, base string) (models.DiscoveredProduct, bool) {
	if node.Title == "" {
		return models.DiscoveredProduct{}, false
	}

	p := models.DiscoveredProduct{
		Name:        node.Title,
		Currency:    "USD",
		ProductURL:  resolveURL(base, "/products/"+node.Handle),
		Platform:    models.PlatformShopify,
		ProductType: node.ProductType,
		Tags:        node.Tags,
		Description: node.Description,
	}

	minPrice := node.PriceRange.MinVariantPrice
	if minPrice.Amount != "" {
		if amount, err := decimal.NewFromString(minPrice.Amount); err == nil {
			p.Price = &amount
		}
	}
	if minPrice.CurrencyCode != "" {
		p.Currency = minPrice.CurrencyCode
	}

	if len(node.Images.Edges) > 0 {
		p.ImageURL = node.Images.Edges[0].Node.URL
	}

	if len(node.Variants.Edges) > 0 {
		variant := node.Variants.Edges[0].Node
		p.VariantID = variant.ID
		p.SKU = variant.SKU
		p.InStock = variant.AvailableForSale
	}

	return p, true
}
