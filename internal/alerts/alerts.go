package alerts

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/price-monitor/internal/models"
)

// Changes of at least this absolute amount are reported even when they
// fall under the percentage threshold.
var absoluteChangeFloor = decimal.NewFromInt(5)

// Evaluator turns consecutive price observations into alert-worthy
// change events.
type Evaluator struct {
	// ThresholdPercent is the relative change that triggers an alert.
	ThresholdPercent decimal.Decimal
	logger           *slog.Logger
}

func NewEvaluator(thresholdPercent decimal.Decimal) *Evaluator {
	return &Evaluator{
		ThresholdPercent: thresholdPercent,
		logger:           slog.Default().With("component", "alert_evaluator"),
	}
}

// EvaluateChange compares a new observation against the previous one and
// returns the change event it warrants, or nil when nothing noteworthy
// happened. A zero or negative old price means there is no meaningful
// baseline, so no event is produced.
func (e *Evaluator) EvaluateChange(oldPrice, newPrice decimal.Decimal, oldCurrency, newCurrency string) *models.PriceChange {
	if !oldPrice.IsPositive() {
		return nil
	}

	if oldCurrency != newCurrency {
		e.logger.Info("currency changed", "old", oldCurrency, "new", newCurrency)
		return &models.PriceChange{
			Type:        models.ChangeCurrencyChanged,
			OldPrice:    oldPrice,
			NewPrice:    newPrice,
			OldCurrency: oldCurrency,
			NewCurrency: newCurrency,
		}
	}

	diff := newPrice.Sub(oldPrice)
	if diff.IsZero() {
		return nil
	}

	changePercent := diff.Div(oldPrice).Mul(decimal.NewFromInt(100)).Round(2)

	significant := changePercent.Abs().GreaterThanOrEqual(e.ThresholdPercent) ||
		diff.Abs().GreaterThanOrEqual(absoluteChangeFloor)
	if !significant {
		return nil
	}

	changeType := models.ChangePriceIncrease
	if diff.IsNegative() {
		changeType = models.ChangePriceDrop
	}

	e.logger.Info("price change detected",
		"type", changeType,
		"old_price", oldPrice.String(),
		"new_price", newPrice.String(),
		"change_percent", changePercent.String())

	return &models.PriceChange{
		Type:          changeType,
		OldPrice:      oldPrice,
		NewPrice:      newPrice,
		OldCurrency:   oldCurrency,
		NewCurrency:   newCurrency,
		ChangePercent: &changePercent,
	}
}
