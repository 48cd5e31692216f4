package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// KeywordFilter matches item names containing any of a set of keywords,
// ignoring case and Unicode composition.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter creates a KeywordFilter. Blank keywords are ignored.
func NewKeywordFilter(keywords ...string) KeywordFilter {
	fold := cases.Fold()
	f := KeywordFilter{}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		f.keywords = append(f.keywords, fold.String(norm.NFC.String(k)))
	}
	return f
}

// Empty reports whether the filter has no keywords.
func (f KeywordFilter) Empty() bool {
	return len(f.keywords) == 0
}

// Keywords returns the case-folded keywords.
func (f KeywordFilter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}

// Matches reports whether name contains at least one keyword.
func (f KeywordFilter) Matches(name string) bool {
	if f.Empty() {
		return false
	}
	folded := cases.Fold().String(norm.NFC.String(name))
	for _, k := range f.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Excludes reports whether an item named name must be dropped when the
// filter is used as a denylist.
func (f KeywordFilter) Excludes(name string) bool {
	return f.Matches(name)
}

// Includes reports whether an item named name is kept when the filter is
// used as an allowlist. An empty filter keeps everything.
func (f KeywordFilter) Includes(name string) bool {
	return f.Empty() || f.Matches(name)
}
