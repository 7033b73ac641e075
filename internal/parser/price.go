package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	symbolRe = regexp.MustCompile(`[£€$₦\s]`)
	letterRe = regexp.MustCompile(`[A-Za-z]`)
)

// ParsePrice extracts a decimal amount and a currency code from free-form
// price text. It never fails hard: on unparseable input it returns a nil
// amount together with whatever currency was detected.
//
// Currency detection is ordered by target-market priority and must stay
// that way: NGN first, then GBP, EUR, CAD, with USD as the default.
func ParsePrice(text string) (*decimal.Decimal, string) {
	currency := DetectCurrency(text)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, currency
	}

	cleaned := symbolRe.ReplaceAllString(text, "")
	cleaned = letterRe.ReplaceAllString(cleaned, "")
	cleaned = normalizeSeparators(cleaned)

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, currency
	}

	return &amount, currency
}

// DetectCurrency returns the ISO-ish currency code implied by the text,
// defaulting to USD.
func DetectCurrency(text string) string {
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(text, "₦") || strings.Contains(upper, "NGN"):
		return "NGN"
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(upper, "CAD") || strings.Contains(text, "C$"):
		return "CAD"
	default:
		return "USD"
	}
}

// normalizeSeparators converts a numeric string using either US
// (1,234.56) or European (1.234,56) convention into plain decimal form.
// When both separators appear, the rightmost one is the decimal point.
// A lone comma is a decimal point only when exactly two digits follow it.
func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts[len(parts)-1]) == 2 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	return s
}
