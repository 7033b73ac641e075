package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/price-monitor/internal/fetch"
)

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	client, err := fetch.NewClient(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestShopifyDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products.json" {
			fmt.Fprint(w, `{"products": []}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	assert.True(t, h.Detect(context.Background(), server.URL))
}

func TestShopifyDetectRejectsNonShopify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>not a shop</body></html>`)
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	assert.False(t, h.Detect(context.Background(), server.URL))
}

func TestShopifyFetchProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products.json" {
			http.NotFound(w, r)
			return
		}

		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"products": [
				{
					"title": "Classic Tee",
					"handle": "classic-tee",
					"product_type": "Shirts",
					"tags": ["cotton", "summer"],
					"images": [{"src": "https://cdn.example.com/tee.jpg"}],
					"variants": [{"id": 111, "price": "29.99", "sku": "TEE-1", "available": true}]
				},
				{
					"title": "Winter Coat",
					"handle": "winter-coat",
					"product_type": "Outerwear",
					"tags": "wool, winter",
					"variants": [{"id": 222, "price": "49.99", "sku": "COAT-1", "available": false}]
				}
			]}`)
			return
		}
		fmt.Fprint(w, `{"products": []}`)
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "", 50)
	require.NoError(t, err)
	require.Len(t, products, 2)

	tee := products[0]
	assert.Equal(t, "Classic Tee", tee.Name)
	require.NotNil(t, tee.Price)
	assert.Equal(t, "29.99", tee.Price.String())
	assert.Equal(t, "USD", tee.Currency)
	assert.Equal(t, "111", tee.VariantID)
	assert.Equal(t, "TEE-1", tee.SKU)
	assert.Equal(t, []string{"cotton", "summer"}, tee.Tags)
	assert.Equal(t, "https://cdn.example.com/tee.jpg", tee.ImageURL)
	assert.Equal(t, server.URL+"/products/classic-tee", tee.ProductURL)
	assert.True(t, tee.InStock)

	coat := products[1]
	assert.Equal(t, []string{"wool", "winter"}, coat.Tags)
	assert.False(t, coat.InStock)
}

func TestShopifyKeywordFilterRunsAfterFullFetch(t *testing.T) {
	// Two pages; the keyword match sits on the second page, so filtering
	// before pagination finished would drop it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			products := make([]map[string]any, 0, shopifyPageSize)
			for i := 0; i < shopifyPageSize; i++ {
				products = append(products, map[string]any{
					"title":  fmt.Sprintf("Widget %d", i),
					"handle": fmt.Sprintf("widget-%d", i),
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"products": products})
		case "2":
			fmt.Fprint(w, `{"products": [{"title": "Rare Gadget", "handle": "rare-gadget"}]}`)
		default:
			fmt.Fprint(w, `{"products": []}`)
		}
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "gadget", 50)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Rare Gadget", products[0].Name)
}

func TestShopifyStorefrontFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products.json":
			// Headless storefront: the legacy API answers but is empty.
			fmt.Fprint(w, `{"products": []}`)
		case "/api/unstable/graphql.json":
			fmt.Fprint(w, `{"data": {"products": {
				"edges": [{"node": {
					"id": "gid://shopify/Product/1",
					"title": "Hydrogen Hat",
					"handle": "hydrogen-hat",
					"productType": "Hats",
					"tags": ["headwear"],
					"priceRange": {"minVariantPrice": {"amount": "15.50", "currencyCode": "EUR"}},
					"images": {"edges": [{"node": {"url": "https://cdn.example.com/hat.jpg"}}]},
					"variants": {"edges": [{"node": {"id": "gid://shopify/ProductVariant/9", "sku": "HAT-9", "availableForSale": true}}]}
				}}],
				"pageInfo": {"hasNextPage": false, "endCursor": ""}
			}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)

	hat := products[0]
	assert.Equal(t, "Hydrogen Hat", hat.Name)
	require.NotNil(t, hat.Price)
	assert.Equal(t, "15.5", hat.Price.String())
	assert.Equal(t, "EUR", hat.Currency)
	assert.Equal(t, "HAT-9", hat.SKU)
	assert.True(t, hat.InStock)
}

func TestShopifyFetchRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"products": []}`)
			return
		}
		fmt.Fprint(w, `{"products": [
			{"title": "One", "handle": "one"},
			{"title": "Two", "handle": "two"},
			{"title": "Three", "handle": "three"}
		]}`)
	}))
	defer server.Close()

	h := NewShopifyHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "", 2)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"list form", []any{"a", "b"}, []string{"a", "b"}},
		{"comma string", "a, b ,c", []string{"a", "b", "c"}},
		{"empty string", "", nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTags(tt.in))
		})
	}
}
