package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/alerts"
	"github.com/pricehawk/price-monitor/internal/api"
	"github.com/pricehawk/price-monitor/internal/browser"
	"github.com/pricehawk/price-monitor/internal/cache"
	"github.com/pricehawk/price-monitor/internal/config"
	"github.com/pricehawk/price-monitor/internal/database"
	"github.com/pricehawk/price-monitor/internal/fetch"
	"github.com/pricehawk/price-monitor/internal/monitor"
	"github.com/pricehawk/price-monitor/internal/proxy"
	"github.com/pricehawk/price-monitor/internal/ratelimit"
	"github.com/pricehawk/price-monitor/internal/scraper"
	"github.com/pricehawk/price-monitor/internal/stores"
	"github.com/pricehawk/price-monitor/internal/urlcheck"
)

func main() {
	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional; without it discovery results just aren't cached.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
	}
	discoveryCache := cache.NewDiscoveryCache(redisClient, cfg.Discovery.CacheTTL)

	// Browser tier for pages that render prices client-side.
	var renderer scraper.Renderer
	if cfg.Browser.Enabled {
		b, err := browser.New(&browser.Options{
			Headless:       cfg.Browser.Headless,
			Timeout:        cfg.Browser.Timeout,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
		})
		if err != nil {
			logger.Error("failed to initialize browser", "error", err)
			os.Exit(1)
		}
		defer b.Close()
		renderer = b
	}

	// Proxy rotation
	var proxyProvider proxy.Provider
	if cfg.Proxy.WebshareAPIKey != "" {
		proxyProvider = proxy.NewWebshareProvider(cfg.Proxy.WebshareAPIKey)
	}
	proxyCache := proxy.NewCache(proxyProvider, cfg.Proxy.CacheTTL, logger)

	validator := urlcheck.NewSSRFValidator()

	newFetchClient := func(proxyURL string) (*fetch.Client, error) {
		return fetch.NewClient(&fetch.Options{
			Timeout:      cfg.Scraper.RequestTimeout,
			MaxRedirects: cfg.Scraper.MaxRedirects,
			UserAgents:   cfg.Scraper.UserAgents,
			Proxy:        proxyURL,
		})
	}

	// Discovery pipeline
	detector := stores.NewDetector(func() *fetch.Client {
		client, err := newFetchClient("")
		if err != nil {
			// Only reachable with a malformed proxy URL, which is empty here.
			logger.Error("failed to build fetch client", "error", err)
			os.Exit(1)
		}
		return client
	}, cfg.Discovery.MaxProductsFetch)
	discoverer := stores.NewDiscoverer(validator, detector)

	// Single-product scraper
	priceScraper := scraper.New(scraper.Options{
		Validator: validator,
		Proxies:   proxyCache,
		Fetcher: func(proxyURL string) (scraper.Fetcher, error) {
			return newFetchClient(proxyURL)
		},
		Renderer:      renderer,
		Limiter:       ratelimit.NewJitterLimiter(cfg.Scraper.DelayMin, cfg.Scraper.DelayMax),
		RenderTimeout: cfg.Browser.Timeout,
		SettleDelay:   cfg.Browser.SettleDelay,
	})

	// Competitor monitoring
	evaluator := alerts.NewEvaluator(decimal.NewFromFloat(cfg.Alerts.ThresholdPercent))
	mon := monitor.New(db, priceScraper, evaluator)

	handlers := api.NewHandlers(discoverer, priceScraper, mon, discoveryCache, cfg.Discovery.DefaultLimit)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
