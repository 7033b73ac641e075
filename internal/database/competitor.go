package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Competitor is one tracked product URL belonging to a user.
type Competitor struct {
	ID           uuid.UUID        `db:"id"`
	UserID       uuid.UUID        `db:"user_id"`
	Name         string           `db:"name"`
	ProductURL   string           `db:"product_url"`
	Platform     string           `db:"platform"`
	LastPrice    *decimal.Decimal `db:"last_price"`
	LastCurrency sql.NullString   `db:"last_currency"`
	LastChecked  sql.NullTime     `db:"last_checked"`
	CreatedAt    time.Time        `db:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"`
}

// PriceEntry is one scrape observation recorded for a competitor.
type PriceEntry struct {
	ID           uuid.UUID        `db:"id"`
	CompetitorID uuid.UUID        `db:"competitor_id"`
	Price        *decimal.Decimal `db:"price"`
	Currency     string           `db:"currency"`
	Status       string           `db:"status"`
	ErrorMessage sql.NullString   `db:"error_message"`
	CheckedAt    time.Time        `db:"checked_at"`
}

// InsertCompetitor stores a new tracked competitor and fills in its
// generated ID and timestamps.
func (db *DB) InsertCompetitor(ctx context.Context, c *Competitor) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO competitors (id, user_id, name, product_url, platform)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := db.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Name, c.ProductURL, c.Platform,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert competitor: %w", err)
	}

	return nil
}

// GetCompetitor loads one competitor by ID.
func (db *DB) GetCompetitor(ctx context.Context, id uuid.UUID) (*Competitor, error) {
	query := `
		SELECT id, user_id, name, product_url, platform,
		       last_price, last_currency, last_checked,
		       created_at, updated_at
		FROM competitors
		WHERE id = $1`

	var c Competitor
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.ProductURL, &c.Platform,
		&c.LastPrice, &c.LastCurrency, &c.LastChecked,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor: %w", err)
	}

	return &c, nil
}

// InsertPriceEntry records one scrape outcome for a competitor. On a
// successful scrape it also rolls the competitor's cached last price
// forward, in one transaction.
func (db *DB) InsertPriceEntry(ctx context.Context, e *PriceEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	return db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO price_history (id, competitor_id, price, currency, status, error_message)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING checked_at`

		err := tx.QueryRow(ctx, query,
			e.ID, e.CompetitorID, e.Price, e.Currency, e.Status, e.ErrorMessage,
		).Scan(&e.CheckedAt)
		if err != nil {
			return fmt.Errorf("failed to insert price entry: %w", err)
		}

		if e.Price == nil {
			return nil
		}

		update := `
			UPDATE competitors SET
				last_price = $2,
				last_currency = $3,
				last_checked = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`

		if _, err := tx.Exec(ctx, update, e.CompetitorID, e.Price, e.Currency); err != nil {
			return fmt.Errorf("failed to update competitor price: %w", err)
		}

		return nil
	})
}

// LatestPrices returns the most recent price entries for a competitor,
// newest first.
func (db *DB) LatestPrices(ctx context.Context, competitorID uuid.UUID, limit int) ([]PriceEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, competitor_id, price, currency, status, error_message, checked_at
		FROM price_history
		WHERE competitor_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, competitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var entries []PriceEntry
	for rows.Next() {
		var e PriceEntry
		if err := rows.Scan(&e.ID, &e.CompetitorID, &e.Price, &e.Currency, &e.Status, &e.ErrorMessage, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
