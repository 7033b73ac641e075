package stores

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWooCommerceDetectViaStoreAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-json/wc/store/products" {
			fmt.Fprint(w, `[{"id": 1, "name": "Thing"}]`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	assert.True(t, h.Detect(context.Background(), server.URL))
}

func TestWooCommerceDetectFallsThroughEndpoints(t *testing.T) {
	var probed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = append(probed, r.URL.Path)
		if r.URL.Path == "/wp-json/wc/v3/products" {
			fmt.Fprint(w, `[{"id": 1, "name": "Thing"}]`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	assert.True(t, h.Detect(context.Background(), server.URL))
	assert.Contains(t, probed, "/wp-json/wc/store/products")
	assert.Contains(t, probed, "/wp-json/wc/v3/products")
}

func TestWooCommerceDetectRejectsNonWoo(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	assert.False(t, h.Detect(context.Background(), server.URL))
}

func TestWooCommerceStoreAPIMinorUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/store/products" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") == "1" || r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `[{
				"id": 42,
				"name": "Espresso Beans",
				"slug": "espresso-beans",
				"permalink": "https://shop.example.com/product/espresso-beans",
				"sku": "BEANS-42",
				"is_in_stock": false,
				"description": "Dark roast",
				"images": [{"src": "https://shop.example.com/beans.jpg"}],
				"categories": [{"name": "Coffee"}],
				"prices": {"price": "1499", "currency_code": "EUR", "currency_minor_unit": 2}
			}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "Espresso Beans", p.Name)
	require.NotNil(t, p.Price)
	assert.Equal(t, "14.99", p.Price.String())
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "42", p.VariantID)
	assert.Equal(t, "BEANS-42", p.SKU)
	assert.False(t, p.InStock)
	assert.Equal(t, []string{"Coffee"}, p.Tags)
	assert.Equal(t, "https://shop.example.com/product/espresso-beans", p.ProductURL)
}

func TestWooCommerceRESTDecimalPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/v3/products" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") == "1" || r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `[{
				"id": 7,
				"name": "Filter Papers",
				"slug": "filter-papers",
				"price": "5.25",
				"categories": [{"name": "Accessories"}],
				"tags": [{"name": "paper"}]
			}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	require.NotNil(t, p.Price)
	assert.Equal(t, "5.25", p.Price.String())
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, []string{"Accessories", "paper"}, p.Tags)
	assert.True(t, p.InStock)
}

func TestWooCommerceKeywordFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/store/products" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") == "1" || r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `[
				{"id": 1, "name": "Espresso Beans", "prices": {"price": "1000", "currency_minor_unit": 2}},
				{"id": 2, "name": "Tea Sampler", "prices": {"price": "2000", "currency_minor_unit": 2}}
			]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	h := NewWooCommerceHandler(newTestClient(t), 500)

	products, err := h.FetchProducts(context.Background(), server.URL, "tea", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Tea Sampler", products[0].Name)
}
