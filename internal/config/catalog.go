package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/catalogscan/internal/crawler"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/reconcile"
)

// Kind is the shape of a catalog.
type Kind string

const (
	// KindDual catalogs are scraped under the type and usage taxonomies and
	// reconciled with an outer join.
	KindDual Kind = "dual"

	// KindSingle catalogs are scraped under the type taxonomy only.
	KindSingle Kind = "single"
)

// TaxonomyConfig lists the category listings of one taxonomy.
type TaxonomyConfig struct {
	// Exclude drops items whose name contains one of these keywords
	// (case-insensitive) before reconciliation.
	Exclude []string `yaml:"exclude,omitempty"`

	// Categories are scraped in order.
	Categories []model.CategorySource `yaml:"categories"`
}

// CatalogConfig describes one catalog: where its listings are and how they
// are reconciled.
type CatalogConfig struct {
	// Kind is "dual" (default) or "single".
	Kind Kind `yaml:"kind,omitempty"`

	// Precedence is "type" (default) or "usage".
	Precedence string `yaml:"precedence,omitempty"`

	// GroupBy is "name-price" (default) or "name".
	GroupBy string `yaml:"groupBy,omitempty"`

	// Sentinel is the category of products missing from a taxonomy. Default "Others".
	Sentinel string `yaml:"sentinel,omitempty"`

	// Delimiter joins multi-valued categories. Default "; ".
	Delimiter string `yaml:"delimiter,omitempty"`

	// Currency is the currency symbol of the price column. Default "€".
	Currency string `yaml:"currency,omitempty"`

	// Rule is the extraction rule of the source template. Nil uses the
	// calebasse.com rule.
	Rule *crawler.SelectorRule `yaml:"rule,omitempty"`

	// Site overrides the default request identity.
	Site SiteConfig `yaml:"site,omitempty"`

	Taxonomies TaxonomySet `yaml:"taxonomies"`
}

// TaxonomySet holds the two taxonomies of a catalog. Usage is ignored by
// single catalogs.
type TaxonomySet struct {
	Type  TaxonomyConfig `yaml:"type"`
	Usage TaxonomyConfig `yaml:"usage,omitempty"`
}

// File represents the structure of the .catalogscan configuration file.
type File struct {
	// Defaults contains the request identity applied to every catalog
	// unless overridden in the catalog's site section.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Catalogs maps catalog names to their definitions.
	Catalogs map[string]CatalogConfig `yaml:"catalogs,omitempty"`
}

// Names returns the catalog names in lexical order.
func (cf *File) Names() []string {
	names := make([]string, 0, len(cf.Catalogs))
	for name := range cf.Catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog returns the named catalog definition.
func (cf *File) Catalog(name string) (CatalogConfig, error) {
	c, ok := cf.Catalogs[name]
	if !ok {
		return CatalogConfig{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownCatalog, name, strings.Join(cf.Names(), ", "))
	}
	return c, nil
}

// Validate checks every catalog definition.
func (cf *File) Validate() error {
	for _, name := range cf.Names() {
		if err := cf.Catalogs[name].Validate(); err != nil {
			return fmt.Errorf("catalog %q: %w", name, err)
		}
	}
	return nil
}

// IsSingle reports whether the catalog uses the type taxonomy only.
func (c CatalogConfig) IsSingle() bool {
	return c.Kind == KindSingle
}

// Taxonomy returns the configuration of tx.
func (c CatalogConfig) Taxonomy(tx model.Taxonomy) TaxonomyConfig {
	if tx == model.TaxonomyUsage {
		return c.Taxonomies.Usage
	}
	return c.Taxonomies.Type
}

// ActiveTaxonomies returns the taxonomies scraped for the catalog.
func (c CatalogConfig) ActiveTaxonomies() []model.Taxonomy {
	if c.IsSingle() {
		return []model.Taxonomy{model.TaxonomyType}
	}
	return model.Taxonomies
}

// ExtractionRule returns the configured rule or the calebasse.com rule.
func (c CatalogConfig) ExtractionRule() *crawler.SelectorRule {
	if c.Rule == nil || c.Rule.Name == "" {
		return crawler.CalebasseRule()
	}
	rule := *c.Rule
	if len(rule.Next) == 0 {
		rule.Next = crawler.DefaultNextSelectors
	}
	return &rule
}

// ReconcilerOptions converts the catalog settings into reconciler options.
func (c CatalogConfig) ReconcilerOptions(name string) ([]reconcile.Option, error) {
	precedence, err := reconcile.ParsePrecedence(c.Precedence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	groupBy, err := reconcile.ParseGroupBy(c.GroupBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	opts := []reconcile.Option{
		reconcile.WithCatalog(name),
		reconcile.WithPrecedence(precedence),
		reconcile.WithGroupBy(groupBy),
		reconcile.WithSentinel(c.Sentinel),
		reconcile.WithDelimiter(c.Delimiter),
		reconcile.WithCurrency(c.Currency),
	}
	for _, tx := range c.ActiveTaxonomies() {
		opts = append(opts, reconcile.WithExclusions(tx, reconcile.NewKeywordFilter(c.Taxonomy(tx).Exclude...)))
	}
	return opts, nil
}

// CurrencySymbol returns the configured currency or the default.
func (c CatalogConfig) CurrencySymbol() string {
	if c.Currency == "" {
		return model.DefaultCurrency
	}
	return c.Currency
}

// Validate checks a catalog definition.
func (c CatalogConfig) Validate() error {
	switch c.Kind {
	case "", KindDual, KindSingle:
	default:
		return fmt.Errorf("%w: kind %q (expected dual or single)", ErrInvalidCatalog, c.Kind)
	}
	if _, err := c.ReconcilerOptions(""); err != nil {
		return err
	}
	for _, tx := range c.ActiveTaxonomies() {
		categories := c.Taxonomy(tx).Categories
		if len(categories) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyTaxonomy, tx)
		}
		for i, src := range categories {
			if strings.TrimSpace(src.URL) == "" || strings.TrimSpace(src.Label) == "" {
				return fmt.Errorf("%w: %s category %d needs url and label", ErrInvalidCatalog, tx, i+1)
			}
			if src.PageHint < 0 {
				return fmt.Errorf("%w: %s category %q has negative page count", ErrInvalidCatalog, tx, src.Label)
			}
		}
	}
	return nil
}
