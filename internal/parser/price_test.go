package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		amount   string
		currency string
		nilPrice bool
	}{
		{"US format with thousands", "$1,299.99", "1299.99", "USD", false},
		{"European format", "€1.234,56", "1234.56", "EUR", false},
		{"Plain dollars", "$29.99", "29.99", "USD", false},
		{"Pounds", "£49.50", "49.5", "GBP", false},
		{"Naira symbol", "₦15,000.00", "15000", "NGN", false},
		{"Naira word", "NGN 2500", "2500", "NGN", false},
		{"Canadian", "C$19.99", "19.99", "CAD", false},
		{"Comma as decimal point", "19,99", "19.99", "USD", false},
		{"Comma as thousands", "1,299", "1299", "USD", false},
		{"Bare number", "42", "42", "USD", false},
		{"Zero not filtered", "$0.00", "0", "USD", false},
		{"Empty string", "", "", "USD", true},
		{"No digits", "call for price", "", "USD", true},
		{"Whitespace only", "   ", "", "USD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency := ParsePrice(tt.input)

			assert.Equal(t, tt.currency, currency)

			if tt.nilPrice {
				assert.Nil(t, amount)
				return
			}

			require.NotNil(t, amount)
			assert.Equal(t, tt.amount, amount.String())
		})
	}
}

func TestParsePriceCurrencyPrecedence(t *testing.T) {
	// NGN wins over the dollar sign when both markers are present.
	_, currency := ParsePrice("₦1,000 ($1.20)")
	assert.Equal(t, "NGN", currency)

	// GBP wins over EUR.
	_, currency = ParsePrice("£10 / €12")
	assert.Equal(t, "GBP", currency)
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"₦500", "NGN"},
		{"about ngn 500", "NGN"},
		{"£9.99", "GBP"},
		{"€9.99", "EUR"},
		{"C$9.99", "CAD"},
		{"9.99 CAD", "CAD"},
		{"$9.99", "USD"},
		{"", "USD"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectCurrency(tt.input), "input %q", tt.input)
	}
}
