package reconcile

import (
	"fmt"
	"strings"

	"github.com/nao1215/catalogscan/internal/model"
)

// Precedence selects the side whose name and price win when a product is
// present in both taxonomies.
type Precedence int

const (
	// PrecedenceType takes name and price from the type side first.
	PrecedenceType Precedence = iota

	// PrecedenceUsage takes name and price from the usage side first.
	PrecedenceUsage
)

// String returns the configuration name of the precedence.
func (p Precedence) String() string {
	switch p {
	case PrecedenceType:
		return "type"
	case PrecedenceUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// ParsePrecedence parses "type" or "usage". The empty string is PrecedenceType.
func ParsePrecedence(s string) (Precedence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "type":
		return PrecedenceType, nil
	case "usage", "use":
		return PrecedenceUsage, nil
	default:
		return PrecedenceType, fmt.Errorf("unknown precedence %q (expected type or usage)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precedence) UnmarshalText(text []byte) error {
	v, err := ParsePrecedence(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Precedence) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// GroupBy selects the aggregation key of joined rows.
type GroupBy int

const (
	// GroupByNameKeyPrice keeps differently priced items with the same name
	// as distinct products.
	GroupByNameKeyPrice GroupBy = iota

	// GroupByNameKey merges every row sharing a name key; the price of the
	// first row wins.
	GroupByNameKey
)

// String returns the configuration name of the grouping.
func (g GroupBy) String() string {
	switch g {
	case GroupByNameKeyPrice:
		return "name-price"
	case GroupByNameKey:
		return "name"
	default:
		return "unknown"
	}
}

// ParseGroupBy parses "name-price" or "name". The empty string is GroupByNameKeyPrice.
func ParseGroupBy(s string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name-price", "name_price":
		return GroupByNameKeyPrice, nil
	case "name":
		return GroupByNameKey, nil
	default:
		return GroupByNameKeyPrice, fmt.Errorf("unknown grouping %q (expected name-price or name)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GroupBy) UnmarshalText(text []byte) error {
	v, err := ParseGroupBy(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (g GroupBy) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSentinel sets the category used for absent taxonomy membership.
func WithSentinel(s string) Option {
	return func(r *Reconciler) {
		if s != "" {
			r.sentinel = s
		}
	}
}

// WithDelimiter sets the separator of joined categories.
func WithDelimiter(d string) Option {
	return func(r *Reconciler) {
		if d != "" {
			r.delimiter = d
		}
	}
}

// WithCurrency sets the currency symbol of the price column.
func WithCurrency(c string) Option {
	return func(r *Reconciler) {
		if c != "" {
			r.currency = c
		}
	}
}

// WithCatalog sets the catalog name stamped on produced tables.
func WithCatalog(name string) Option {
	return func(r *Reconciler) {
		r.catalog = name
	}
}

// WithPrecedence sets which side wins name and price.
func WithPrecedence(p Precedence) Option {
	return func(r *Reconciler) {
		r.precedence = p
	}
}

// WithGroupBy sets the aggregation key.
func WithGroupBy(g GroupBy) Option {
	return func(r *Reconciler) {
		r.groupBy = g
	}
}

// WithExclusions sets the denylist of a taxonomy.
func WithExclusions(tx model.Taxonomy, f KeywordFilter) Option {
	return func(r *Reconciler) {
		r.exclude[tx] = f
	}
}
