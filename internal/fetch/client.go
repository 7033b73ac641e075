package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxBodySize = 5 * 1024 * 1024

var (
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	ErrBadStatus    = errors.New("unexpected HTTP status")
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Options configures a Client.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgents   []string
	// RequestsPerSecond throttles outbound calls; zero means unlimited.
	RequestsPerSecond float64
	// Proxy is an optional proxy URL applied to every request.
	Proxy string
}

func DefaultOptions() *Options {
	return &Options{
		Timeout:      30 * time.Second,
		MaxRedirects: 5,
		UserAgents:   defaultUserAgents,
	}
}

// Client is the HTTP fetch capability shared by the platform handlers and
// the single-product scraper: rotating User-Agent, capped redirects, a
// 5 MB response ceiling, and optional proxying.
type Client struct {
	httpClient *http.Client
	userAgents []string
	limiter    *rate.Limiter
}

func NewClient(opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	userAgents := opts.UserAgents
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgents: userAgents,
		limiter:    limiter,
	}, nil
}

// Get fetches the URL and returns the body as text.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", nil)
}

// GetJSON fetches the URL with JSON accept headers.
func (c *Client) GetJSON(ctx context.Context, rawURL string) (string, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", map[string]string{
		"Accept": "application/json",
	})
}

// PostJSON posts a JSON body and returns the response text.
func (c *Client) PostJSON(ctx context.Context, rawURL, body string) (string, error) {
	return c.do(ctx, http.MethodPost, rawURL, body, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
}

func (c *Client) do(ctx context.Context, method, rawURL, body string, headers map[string]string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgents[rand.Intn(len(c.userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	if len(data) > maxBodySize {
		return "", ErrBodyTooLarge
	}

	return string(data), nil
}

// Close releases idle connections held by the underlying transport.
// Safe to call exactly once per client lifetime.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
