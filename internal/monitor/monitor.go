package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pricehawk/price-monitor/internal/alerts"
	"github.com/pricehawk/price-monitor/internal/database"
	"github.com/pricehawk/price-monitor/internal/models"
)

// Store is the persistence surface the monitor needs; *database.DB
// satisfies it.
type Store interface {
	GetCompetitor(ctx context.Context, id uuid.UUID) (*database.Competitor, error)
	InsertPriceEntry(ctx context.Context, e *database.PriceEntry) error
}

// PriceScraper extracts a price from a product URL.
type PriceScraper interface {
	ScrapeURL(ctx context.Context, rawURL string) models.ScrapeResult
}

// Monitor runs on-demand price checks for tracked competitors: scrape
// the product page, record the observation, and compare it against the
// previous price.
type Monitor struct {
	store     Store
	scraper   PriceScraper
	evaluator *alerts.Evaluator
	logger    *slog.Logger
}

func New(store Store, scraper PriceScraper, evaluator *alerts.Evaluator) *Monitor {
	return &Monitor{
		store:     store,
		scraper:   scraper,
		evaluator: evaluator,
		logger:    slog.Default().With("component", "monitor"),
	}
}

// CheckOutcome is the result of one competitor check.
type CheckOutcome struct {
	CompetitorID uuid.UUID           `json:"competitor_id"`
	Result       models.ScrapeResult `json:"result"`
	Change       *models.PriceChange `json:"change,omitempty"`
}

// CheckCompetitor scrapes the competitor's product page and records the
// outcome. Failed scrapes are recorded too; they produce no change
// event.
func (m *Monitor) CheckCompetitor(ctx context.Context, id uuid.UUID) (*CheckOutcome, error) {
	competitor, err := m.store.GetCompetitor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitor: %w", err)
	}

	result := m.scraper.ScrapeURL(ctx, competitor.ProductURL)

	entry := &database.PriceEntry{
		CompetitorID: competitor.ID,
		Price:        result.Price,
		Currency:     result.Currency,
		Status:       result.Status,
	}
	if result.ErrorMessage != "" {
		entry.ErrorMessage = sql.NullString{String: result.ErrorMessage, Valid: true}
	}

	if err := m.store.InsertPriceEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record price entry: %w", err)
	}

	outcome := &CheckOutcome{
		CompetitorID: competitor.ID,
		Result:       result,
	}

	if result.Price != nil && competitor.LastPrice != nil {
		oldCurrency := competitor.LastCurrency.String
		if oldCurrency == "" {
			oldCurrency = result.Currency
		}
		outcome.Change = m.evaluator.EvaluateChange(*competitor.LastPrice, *result.Price, oldCurrency, result.Currency)
	}

	m.logger.Info("competitor checked",
		"competitor_id", competitor.ID,
		"status", result.Status,
		"change", outcome.Change != nil)

	return outcome, nil
}
