package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryStat is the product count and mean price of one category.
type CategoryStat struct {
	Label string `json:"label"`
	Count int    `json:"count"`

	// Priced is the number of products with a non-null price.
	Priced int `json:"priced"`

	// MeanPrice is the mean of the non-null prices, rounded to two decimals.
	// Null when no product of the category has a price.
	MeanPrice decimal.NullDecimal `json:"mean_price"`
}

// TaxonomySummary groups the category statistics of one taxonomy column.
type TaxonomySummary struct {
	Taxonomy   Taxonomy       `json:"taxonomy"`
	Column     string         `json:"column"`
	Categories []CategoryStat `json:"categories"`
}

// Summarize computes per-category statistics of a canonical table. A product
// counts once toward each category it belongs to. Categories are ordered by
// count, descending, then by label.
func Summarize(table *CanonicalTable) []TaxonomySummary {
	taxonomies := Taxonomies
	if table.SingleTaxonomy {
		taxonomies = []Taxonomy{TaxonomyType}
	}

	summaries := make([]TaxonomySummary, 0, len(taxonomies))
	for _, tx := range taxonomies {
		summaries = append(summaries, TaxonomySummary{
			Taxonomy:   tx,
			Column:     tx.CategoryColumn(),
			Categories: summarizeTaxonomy(table.Products, tx),
		})
	}
	return summaries
}

type accumulator struct {
	count  int
	priced int
	total  decimal.Decimal
}

func summarizeTaxonomy(products []CanonicalProduct, tx Taxonomy) []CategoryStat {
	acc := make(map[string]*accumulator)
	for _, p := range products {
		for _, label := range p.Categories(tx) {
			a, ok := acc[label]
			if !ok {
				a = &accumulator{}
				acc[label] = a
			}
			a.count++
			if p.Price.Valid {
				a.priced++
				a.total = a.total.Add(p.Price.Decimal)
			}
		}
	}

	stats := make([]CategoryStat, 0, len(acc))
	for label, a := range acc {
		s := CategoryStat{Label: label, Count: a.count, Priced: a.priced}
		if a.priced > 0 {
			mean := a.total.DivRound(decimal.NewFromInt(int64(a.priced)), 2)
			s.MeanPrice = decimal.NewNullDecimal(mean)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Label < stats[j].Label
	})
	return stats
}
