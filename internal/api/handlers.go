package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pricehawk/price-monitor/internal/cache"
	"github.com/pricehawk/price-monitor/internal/database"
	"github.com/pricehawk/price-monitor/internal/models"
	"github.com/pricehawk/price-monitor/internal/monitor"
)

// StoreDiscoverer runs catalog discovery; *stores.Discoverer satisfies it.
type StoreDiscoverer interface {
	Discover(ctx context.Context, storeURL, keyword string, limit int) models.DiscoveryResult
}

// PriceScraper extracts a single price; *scraper.Scraper satisfies it.
type PriceScraper interface {
	ScrapeURL(ctx context.Context, rawURL string) models.ScrapeResult
}

// CompetitorChecker runs a price check for one tracked competitor;
// *monitor.Monitor satisfies it.
type CompetitorChecker interface {
	CheckCompetitor(ctx context.Context, id uuid.UUID) (*monitor.CheckOutcome, error)
}

type Handlers struct {
	discoverer   StoreDiscoverer
	scraper      PriceScraper
	checker      CompetitorChecker
	cache        *cache.DiscoveryCache
	defaultLimit int
	logger       *slog.Logger
}

func NewHandlers(discoverer StoreDiscoverer, scraper PriceScraper, checker CompetitorChecker, discoveryCache *cache.DiscoveryCache, defaultLimit int) *Handlers {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Handlers{
		discoverer:   discoverer,
		scraper:      scraper,
		checker:      checker,
		cache:        discoveryCache,
		defaultLimit: defaultLimit,
		logger:       slog.Default().With("component", "api"),
	}
}

type DiscoverRequest struct {
	StoreURL string `json:"store_url"`
	Keyword  string `json:"keyword"`
	Limit    int    `json:"limit"`
}

// DiscoverStore handles catalog discovery requests.
func (h *Handlers) DiscoverStore(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.StoreURL == "" {
		h.respondError(w, http.StatusBadRequest, "store_url is required")
		return
	}

	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	if h.cache != nil {
		if cached := h.cache.Get(r.Context(), req.StoreURL, req.Keyword, req.Limit); cached != nil {
			h.respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	result := h.discoverer.Discover(r.Context(), req.StoreURL, req.Keyword, req.Limit)

	if h.cache != nil {
		h.cache.Set(r.Context(), req.StoreURL, req.Keyword, req.Limit, result)
	}

	h.respondJSON(w, http.StatusOK, result)
}

type ScrapeRequest struct {
	ProductURL string `json:"product_url"`
}

// ScrapeProduct handles one-off price extraction requests.
func (h *Handlers) ScrapeProduct(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductURL == "" {
		h.respondError(w, http.StatusBadRequest, "product_url is required")
		return
	}

	result := h.scraper.ScrapeURL(r.Context(), req.ProductURL)

	h.respondJSON(w, http.StatusOK, result)
}

// CheckCompetitor handles on-demand competitor price checks.
func (h *Handlers) CheckCompetitor(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "competitorID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid competitor ID")
		return
	}

	outcome, err := h.checker.CheckCompetitor(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "competitor not found")
		return
	}
	if err != nil {
		h.logger.Error("competitor check failed", "competitor_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to check competitor")
		return
	}

	h.respondJSON(w, http.StatusOK, outcome)
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
