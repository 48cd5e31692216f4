package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction is the result of extracting one page.
type Extraction struct {
	// Entries holds the items of the page in document order.
	Entries []Entry

	// HasMore is true only when items were found and the page offers a
	// next-page affordance.
	HasMore bool
}

// Extractor parses page bodies with an injected Rule.
type Extractor struct {
	rule Rule
}

// NewExtractor creates an Extractor. A nil rule falls back to CalebasseRule.
func NewExtractor(rule Rule) *Extractor {
	if rule == nil {
		rule = CalebasseRule()
	}
	return &Extractor{rule: rule}
}

// Extract parses body. A body that yields no item blocks is reported as an
// empty Extraction, which callers treat as the end of results.
func (e *Extractor) Extract(body string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return &Extraction{}, fmt.Errorf("parse page: %w", err)
	}
	entries := e.rule.Entries(doc)
	return &Extraction{
		Entries: entries,
		HasMore: len(entries) > 0 && e.rule.HasNext(doc),
	}, nil
}
