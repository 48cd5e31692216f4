package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// FormatPrice renders a price for tabular output.
// Null prices render as the empty string. Prices are printed with at least two
// decimals, and with more only when the source carried more precision.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	if p.Decimal.Exponent() >= -2 {
		return p.Decimal.StringFixed(2)
	}
	return p.Decimal.StringFixed(-p.Decimal.Exponent())
}

// PriceKey returns a grouping key for a price. Equal amounts with different
// precision ("12.5" and "12.50") share a key; null has its own key.
func PriceKey(p decimal.NullDecimal) string {
	if !p.Valid {
		return "null"
	}
	return p.Decimal.String()
}

// NameKey returns the join key of a display name: NFC composed, lower-cased,
// internal whitespace runs collapsed to one space and trimmed.
func NameKey(text string) string {
	// A Caser is stateful; one per call keeps NameKey safe for concurrent use.
	lower := cases.Lower(language.Und)
	composed := norm.NFC.String(text)
	return strings.Join(strings.Fields(lower.String(composed)), " ")
}
