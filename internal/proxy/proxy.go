package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const webshareListURL = "https://proxy.webshare.io/api/v2/proxy/list/?mode=direct&page_size=10"

// Provider returns a list of proxy URLs to rotate through.
type Provider interface {
	ListProxies(ctx context.Context) ([]string, error)
}

// WebshareProvider fetches rotating proxies from the Webshare list API.
type WebshareProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewWebshareProvider(apiKey string) *WebshareProvider {
	return &WebshareProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webshareProxy struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ProxyAddress string `json:"proxy_address"`
	Port         int    `json:"port"`
	Valid        bool   `json:"valid"`
}

type webshareResponse struct {
	Results []webshareProxy `json:"results"`
}

func (p *WebshareProvider) ListProxies(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, webshareListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy list request failed with status %d", resp.StatusCode)
	}

	var body webshareResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode proxy list: %w", err)
	}

	proxies := make([]string, 0, len(body.Results))
	for _, item := range body.Results {
		if !item.Valid {
			continue
		}
		proxies = append(proxies, fmt.Sprintf("http://%s:%s@%s:%d",
			item.Username, item.Password, item.ProxyAddress, item.Port))
	}

	return proxies, nil
}

// Cache is a read-through, time-boxed proxy list cache. On provider
// failure it serves the last known list instead of failing the caller;
// refreshes are idempotent so last writer wins without extra locking of
// the refresh itself.
type Cache struct {
	provider  Provider
	ttl       time.Duration
	logger    *slog.Logger
	mu        sync.RWMutex
	proxies   []string
	fetchedAt time.Time
	now       func() time.Time
}

func NewCache(provider Provider, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		logger:   logger.With("component", "proxy_cache"),
		now:      time.Now,
	}
}

// List returns the cached proxy list, refreshing it when expired. A nil
// provider means proxying is unconfigured and the list is always empty.
func (c *Cache) List(ctx context.Context) []string {
	if c.provider == nil {
		return nil
	}

	c.mu.RLock()
	fresh := len(c.proxies) > 0 && c.now().Sub(c.fetchedAt) < c.ttl
	cached := c.proxies
	c.mu.RUnlock()

	if fresh {
		return cached
	}

	proxies, err := c.provider.ListProxies(ctx)
	if err != nil {
		c.logger.Warn("proxy refresh failed, serving stale list", "error", err, "stale_count", len(cached))
		return cached
	}

	c.mu.Lock()
	c.proxies = proxies
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return proxies
}

// ListWithDirect returns the proxy list with a trailing empty entry,
// meaning "direct connection". Callers iterate it as a fallback chain.
func (c *Cache) ListWithDirect(ctx context.Context) []string {
	proxies := c.List(ctx)
	chain := make([]string, 0, len(proxies)+1)
	chain = append(chain, proxies...)
	return append(chain, "")
}
