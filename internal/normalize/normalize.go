package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/catalogscan/internal/model"
)

// Price parses a price text such as "12,50 €" or "€ 8.00".
// Every character other than a digit, '.' or ',' is dropped and a comma
// decimal separator becomes a period. The result is null when nothing
// parsable remains; it is never negative since '-' is dropped.
func Price(text string) decimal.NullDecimal {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FormatPrice renders a normalized price for tabular output.
func FormatPrice(p decimal.NullDecimal) string {
	return model.FormatPrice(p)
}

// Name returns the join key of a display name: NFC composed, lower-cased,
// internal whitespace runs collapsed to one space and trimmed.
func Name(text string) string {
	return model.NameKey(text)
}

// Display trims a display name and collapses its internal whitespace while
// keeping the original case.
func Display(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Label trims a category label.
func Label(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// Item returns the normalized form of a raw item. The input is not modified.
func Item(raw model.RawItem) model.NormalizedItem {
	return model.NormalizedItem{
		Name:     Display(raw.Name),
		NameKey:  Name(raw.Name),
		Price:    Price(raw.PriceText),
		Category: Label(raw.Category),
		Taxonomy: raw.Taxonomy,
	}
}

// Items normalizes a sequence of raw items, preserving order.
func Items(raws []model.RawItem) []model.NormalizedItem {
	out := make([]model.NormalizedItem, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Item(raw))
	}
	return out
}

// Stats counts the rows and null prices of a normalized table.
func Stats(tx model.Taxonomy, items []model.NormalizedItem) model.NormalizeStats {
	s := model.NormalizeStats{Taxonomy: tx, Rows: len(items)}
	for _, it := range items {
		if !it.Price.Valid {
			s.NullPrices++
		}
	}
	return s
}
