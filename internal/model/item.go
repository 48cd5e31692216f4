package model

import "github.com/shopspring/decimal"

// CategorySource is one entry of a taxonomy configuration: a category listing
// page, the label stamped on every item scraped from it, and the number of
// pages the listing is known to have.
type CategorySource struct {
	// URL is the absolute URL of the first listing page.
	URL string `json:"url" yaml:"url"`

	// Label is the category label assigned to every item found under URL.
	Label string `json:"label" yaml:"label"`

	// PageHint is the number of pages the listing is known to have.
	// 0 means unknown; pagination then follows next-page links.
	PageHint int `json:"pages,omitempty" yaml:"pages,omitempty"`

	// Include restricts the category to items whose name contains at least one
	// of these keywords (case-insensitive). Empty keeps every item.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
}

// RawItem is an item as extracted from a catalog page, before any cleanup.
type RawItem struct {
	// Name is the product display name as found on the page.
	Name string `json:"name"`

	// PriceText is the raw price text. Empty when the page had no price for the item.
	PriceText string `json:"price_text,omitempty"`

	// Category is the category label supplied by the caller of the paginator.
	Category string `json:"category"`

	// Taxonomy is the category system the item was scraped under.
	Taxonomy Taxonomy `json:"taxonomy"`
}

// NormalizedItem is a RawItem after field cleanup. It is produced by the
// normalize package and never mutated afterwards.
type NormalizedItem struct {
	// Name is the trimmed display name.
	Name string `json:"name"`

	// NameKey is the join key derived from Name: lower-cased, whitespace
	// collapsed and trimmed. An empty key is valid.
	NameKey string `json:"name_key"`

	// Price is the parsed price. It is null only when the source text was
	// absent or unparsable.
	Price decimal.NullDecimal `json:"price"`

	// Category is the trimmed category label.
	Category string `json:"category"`

	// Taxonomy is the category system the item was scraped under.
	Taxonomy Taxonomy `json:"taxonomy"`
}
