package stores

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/price-monitor/internal/models"
)

// allowAllValidator stands in for the SSRF screen in orchestration tests.
type allowAllValidator struct{}

func (allowAllValidator) Validate(string) error { return nil }

type rejectValidator struct{ err error }

func (v rejectValidator) Validate(string) error { return v.err }

// stubHandler lets tests script handler behavior and observe Close.
type stubHandler struct {
	platform string
	products []models.DiscoveredProduct
	err      error
	panics   bool
	closed   bool
}

func (s *stubHandler) Detect(context.Context, string) bool { return true }

func (s *stubHandler) FetchProducts(context.Context, string, string, int) ([]models.DiscoveredProduct, error) {
	if s.panics {
		panic("handler exploded")
	}
	return s.products, s.err
}

func (s *stubHandler) Platform() string { return s.platform }

func (s *stubHandler) Close() error {
	s.closed = true
	return nil
}

type stubDetector struct{ handler Handler }

func (d stubDetector) Detect(context.Context, string) Handler { return d.handler }

func mustDecimal(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}

func TestDiscoverReturnsCatalog(t *testing.T) {
	handler := &stubHandler{
		platform: "shopify",
		products: []models.DiscoveredProduct{
			{Name: "Classic Tee", Price: mustDecimal(t, "29.99"), Currency: "USD", Platform: "shopify"},
			{Name: "Winter Coat", Price: mustDecimal(t, "49.99"), Currency: "USD", Platform: "shopify"},
		},
	}

	d := NewDiscoverer(allowAllValidator{}, stubDetector{handler})

	result := d.Discover(context.Background(), "example-store.myshopify.com", "", 50)

	assert.Equal(t, "shopify", result.Platform)
	assert.Equal(t, "https://example-store.myshopify.com", result.StoreURL)
	assert.Equal(t, 2, result.TotalFound)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "29.99", result.Products[0].Price.String())
	assert.Equal(t, "49.99", result.Products[1].Price.String())
	assert.Empty(t, result.Error)
	assert.True(t, handler.closed)
}

func TestDiscoverRejectsInvalidURL(t *testing.T) {
	d := NewDiscoverer(allowAllValidator{}, stubDetector{&stubHandler{platform: "shopify"}})

	result := d.Discover(context.Background(), "not a url at all", "", 50)

	assert.Equal(t, "unknown", result.Platform)
	assert.Zero(t, result.TotalFound)
	assert.Empty(t, result.Products)
	assert.Contains(t, result.Error, "invalid store URL")
}

func TestDiscoverRejectsHTTPURL(t *testing.T) {
	d := NewDiscoverer(allowAllValidator{}, stubDetector{&stubHandler{platform: "shopify"}})

	result := d.Discover(context.Background(), "http://example.com", "", 50)

	assert.Equal(t, "unknown", result.Platform)
	assert.Contains(t, result.Error, "HTTPS")
}

func TestDiscoverRejectsBlockedURL(t *testing.T) {
	handler := &stubHandler{platform: "shopify"}
	d := NewDiscoverer(rejectValidator{errors.New("private address")}, stubDetector{handler})

	result := d.Discover(context.Background(), "https://10.0.0.5", "", 50)

	assert.Equal(t, "unknown", result.Platform)
	assert.Contains(t, result.Error, "store URL rejected")
	// Detection must not run for a URL that failed validation.
	assert.False(t, handler.closed)
}

func TestDiscoverFoldsFetchErrorIntoResult(t *testing.T) {
	handler := &stubHandler{
		platform: "woocommerce",
		err:      errors.New(strings.Repeat("x", 500)),
	}

	d := NewDiscoverer(allowAllValidator{}, stubDetector{handler})

	result := d.Discover(context.Background(), "https://example.com", "", 50)

	assert.Equal(t, "unknown", result.Platform)
	assert.Zero(t, result.TotalFound)
	assert.Len(t, result.Error, 200)
	assert.True(t, handler.closed)
}

func TestDiscoverSurvivesHandlerPanic(t *testing.T) {
	handler := &stubHandler{platform: "custom", panics: true}

	d := NewDiscoverer(allowAllValidator{}, stubDetector{handler})

	var result models.DiscoveryResult
	assert.NotPanics(t, func() {
		result = d.Discover(context.Background(), "https://example.com", "", 50)
	})

	assert.Contains(t, result.Error, "handler exploded")
	assert.True(t, handler.closed)
}

func TestDiscoverSingleProduct(t *testing.T) {
	handler := &stubHandler{
		platform: "shopify",
		products: []models.DiscoveredProduct{
			{Name: "Only One", Price: mustDecimal(t, "9.99"), Currency: "USD"},
		},
	}

	d := NewDiscoverer(allowAllValidator{}, stubDetector{handler})

	result := d.DiscoverSingleProduct(context.Background(), "https://example.com/products/only-one")

	assert.Equal(t, 1, result.TotalFound)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Only One", result.Products[0].Name)
}
