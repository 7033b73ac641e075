package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/price-monitor/internal/database"
	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/monitor"
)

type fakeDiscoverer struct {
	result models.DiscoveryResult
	calls  int
}

func (f *fakeDiscoverer) Discover(_ context.Context, storeURL, keyword string, limit int) models.DiscoveryResult {
	f.calls++
	return f.result
}

type fakeScraper struct{ result models.ScrapeResult }

func (f fakeScraper) ScrapeURL(context.Context, string) models.ScrapeResult { return f.result }

type fakeChecker struct {
	outcome *monitor.CheckOutcome
	err     error
}

func (f fakeChecker) CheckCompetitor(context.Context, uuid.UUID) (*monitor.CheckOutcome, error) {
	return f.outcome, f.err
}

func newTestServer(t *testing.T, d StoreDiscoverer, s PriceScraper, c CompetitorChecker) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(NewHandlers(d, s, c, nil, 50)))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestDiscoverStore(t *testing.T) {
	price := decimal.NewFromFloat(29.99)
	discoverer := &fakeDiscoverer{result: models.DiscoveryResult{
		Platform:   "shopify",
		StoreURL:   "https://shop.example.com",
		TotalFound: 1,
		Products: []models.DiscoveredProduct{
			{Name: "Classic Tee", Price: &price, Currency: "USD", Platform: "shopify"},
		},
	}}

	server := newTestServer(t, discoverer, fakeScraper{}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/stores/discover", `{"store_url": "shop.example.com"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.DiscoveryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "shopify", result.Platform)
	assert.Equal(t, 1, result.TotalFound)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Classic Tee", result.Products[0].Name)
	assert.Equal(t, 1, discoverer.calls)
}

func TestDiscoverStoreMissingURL(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/stores/discover", `{"keyword": "mug"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDiscoverStoreBadBody(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/stores/discover", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScrapeProduct(t *testing.T) {
	price := decimal.NewFromFloat(19.99)
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{result: models.ScrapeResult{
		Price:    &price,
		Currency: "USD",
		Status:   models.StatusSuccess,
	}}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/scrape", `{"product_url": "https://shop.example.com/products/mug"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ScrapeResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.StatusSuccess, result.Status)
	require.NotNil(t, result.Price)
	assert.Equal(t, "19.99", result.Price.String())
}

func TestScrapeProductMissingURL(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/scrape", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckCompetitor(t *testing.T) {
	id := uuid.New()
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{
		outcome: &monitor.CheckOutcome{
			CompetitorID: id,
			Result:       models.ScrapeResult{Currency: "USD", Status: models.StatusSuccess},
		},
	})

	resp := postJSON(t, server.URL+"/api/competitors/"+id.String()+"/check", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome monitor.CheckOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, id, outcome.CompetitorID)
}

func TestCheckCompetitorInvalidID(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{})

	resp := postJSON(t, server.URL+"/api/competitors/not-a-uuid/check", ``)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckCompetitorNotFound(t *testing.T) {
	server := newTestServer(t, &fakeDiscoverer{}, fakeScraper{}, fakeChecker{err: database.ErrNotFound})

	resp := postJSON(t, server.URL+"/api/competitors/"+uuid.NewString()+"/check", ``)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
