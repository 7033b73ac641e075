package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Discovery DiscoveryConfig
	Browser   BrowserConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Proxy     ProxyConfig
	Alerts    AlertsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	DelayMin       time.Duration
	DelayMax       time.Duration
	RequestTimeout time.Duration
	MaxRedirects   int
	UserAgents     []string
}

type DiscoveryConfig struct {
	MaxProductsFetch int
	DefaultLimit     int
	CacheTTL         time.Duration
}

type BrowserConfig struct {
	Enabled        bool
	Headless       bool
	Timeout        time.Duration
	SettleDelay    time.Duration
	ViewportWidth  int
	ViewportHeight int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ProxyConfig struct {
	WebshareAPIKey string
	CacheTTL       time.Duration
}

type AlertsConfig struct {
	ThresholdPercent float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Absent .env files are fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			DelayMin:       getDurationOrDefault("SCRAPER_DELAY_MIN", 2*time.Second),
			DelayMax:       getDurationOrDefault("SCRAPER_DELAY_MAX", 5*time.Second),
			RequestTimeout: getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 30*time.Second),
			MaxRedirects:   getIntOrDefault("SCRAPER_MAX_REDIRECTS", 5),
			UserAgents:     getStringSliceOrDefault("SCRAPER_USER_AGENTS", nil),
		},
		Discovery: DiscoveryConfig{
			MaxProductsFetch: getIntOrDefault("DISCOVERY_MAX_PRODUCTS_FETCH", 500),
			DefaultLimit:     getIntOrDefault("DISCOVERY_DEFAULT_LIMIT", 50),
			CacheTTL:         getDurationOrDefault("DISCOVERY_CACHE_TTL", 15*time.Minute),
		},
		Browser: BrowserConfig{
			Enabled:        getBoolOrDefault("BROWSER_ENABLED", true),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			SettleDelay:    getDurationOrDefault("BROWSER_SETTLE_DELAY", 2*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "price_monitor"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 10),
			MinConns: getIntOrDefault("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Proxy: ProxyConfig{
			WebshareAPIKey: getEnvOrDefault("WEBSHARE_API_KEY", ""),
			CacheTTL:       getDurationOrDefault("PROXY_CACHE_TTL", 5*time.Minute),
		},
		Alerts: AlertsConfig{
			ThresholdPercent: getFloatOrDefault("ALERT_THRESHOLD_PERCENT", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.DelayMin > c.Scraper.DelayMax {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be greater than SCRAPER_DELAY_MAX")
	}

	if c.Discovery.MaxProductsFetch < 1 {
		return fmt.Errorf("DISCOVERY_MAX_PRODUCTS_FETCH must be at least 1")
	}

	if c.Discovery.DefaultLimit < 1 {
		return fmt.Errorf("DISCOVERY_DEFAULT_LIMIT must be at least 1")
	}

	if c.Alerts.ThresholdPercent <= 0 {
		return fmt.Errorf("ALERT_THRESHOLD_PERCENT must be positive")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
