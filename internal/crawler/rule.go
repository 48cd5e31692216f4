package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entry is an item found on a page before it is stamped with a category.
type Entry struct {
	Name string

	// PriceText is empty when no price element was found for the item.
	PriceText string
}

// Rule extracts entries from one source template. Implementations hold the
// markup knowledge; nothing outside a Rule depends on page structure.
type Rule interface {
	// Entries returns the items of the page in document order.
	Entries(doc *goquery.Document) []Entry

	// HasNext reports whether the page links to a following page.
	HasNext(doc *goquery.Document) bool
}

// SelectorRule is a Rule expressed with CSS selectors.
//
// With Card set, each element matching Card is one item; Name and Price are
// searched inside it. Without Card, every Name element is paired with the
// first Price element that follows it before the next Name element.
type SelectorRule struct {
	Card  string `json:"card,omitempty" yaml:"card,omitempty"`
	Name  string `json:"name" yaml:"name"`
	Price string `json:"price" yaml:"price"`

	// Next lists the selectors of next-page affordances. The first element
	// found that is not disabled counts.
	Next []string `json:"next,omitempty" yaml:"next,omitempty"`
}

// NewSelectorRule creates a card-scoped SelectorRule.
func NewSelectorRule(card, name, price string, next ...string) *SelectorRule {
	return &SelectorRule{Card: card, Name: name, Price: price, Next: next}
}

// DefaultNextSelectors are the next-page affordances commonly found on
// e-commerce listing templates.
var DefaultNextSelectors = []string{
	"a.next",
	`a[rel="next"]`,
	"a.pagination-next",
	"button.next-page",
	"li.next a",
}

// CalebasseRule returns the extraction rule of the calebasse.com listing template.
func CalebasseRule() *SelectorRule {
	return NewSelectorRule(
		`div[class^="product-card @container"]`,
		`div[class^="product-card-title"]`,
		`div[class^="product-card-price"] span`,
		DefaultNextSelectors...,
	)
}

// Entries implements Rule.
func (r *SelectorRule) Entries(doc *goquery.Document) []Entry {
	if r.Card != "" {
		return r.cardEntries(doc)
	}
	return r.positionalEntries(doc)
}

func (r *SelectorRule) cardEntries(doc *goquery.Document) []Entry {
	var entries []Entry
	doc.Find(r.Card).Each(func(_ int, card *goquery.Selection) {
		name := card.Find(r.Name).First()
		if name.Length() == 0 {
			return
		}
		entry := Entry{Name: text(name)}
		if r.Price != "" {
			entry.PriceText = text(card.Find(r.Price).First())
		}
		entries = append(entries, entry)
	})
	return entries
}

func (r *SelectorRule) positionalEntries(doc *goquery.Document) []Entry {
	if r.Price == "" {
		var entries []Entry
		doc.Find(r.Name).Each(func(_ int, s *goquery.Selection) {
			entries = append(entries, Entry{Name: text(s)})
		})
		return entries
	}

	// A group selector yields matches in document order.
	var entries []Entry
	priced := false
	doc.Find(r.Name + ", " + r.Price).Each(func(_ int, s *goquery.Selection) {
		if s.Is(r.Name) {
			entries = append(entries, Entry{Name: text(s)})
			priced = false
			return
		}
		if len(entries) > 0 && !priced {
			entries[len(entries)-1].PriceText = text(s)
			priced = true
		}
	})
	return entries
}

// HasNext implements Rule.
func (r *SelectorRule) HasNext(doc *goquery.Document) bool {
	for _, selector := range r.Next {
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if disabled(s) {
				return true
			}
			found = true
			return false
		})
		if found {
			return true
		}
	}
	return false
}

func disabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if v, _ := s.Attr("aria-disabled"); v == "true" {
		return true
	}
	return s.HasClass("disabled")
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
