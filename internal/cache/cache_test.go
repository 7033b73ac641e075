package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pricehawk/price-monitor/internal/models"
)

func TestDiscoveryKeyIsStable(t *testing.T) {
	a := discoveryKey("https://shop.example.com", "mug", 50)
	b := discoveryKey("https://shop.example.com", "mug", 50)
	assert.Equal(t, a, b)
}

func TestDiscoveryKeyVariesByInput(t *testing.T) {
	base := discoveryKey("https://shop.example.com", "mug", 50)

	assert.NotEqual(t, base, discoveryKey("https://other.example.com", "mug", 50))
	assert.NotEqual(t, base, discoveryKey("https://shop.example.com", "cup", 50))
	assert.NotEqual(t, base, discoveryKey("https://shop.example.com", "mug", 100))
}

func TestNilClientDisablesCaching(t *testing.T) {
	c := NewDiscoveryCache(nil, time.Minute)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "https://shop.example.com", "", 50))

	// Set must be a no-op rather than a panic.
	c.Set(ctx, "https://shop.example.com", "", 50, models.DiscoveryResult{Platform: "shopify"})
}
