package reconcile

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nao1215/catalogscan/internal/model"
)

// Reconciler builds canonical tables from normalized items.
// A Reconciler holds only configuration and may be reused and shared.
type Reconciler struct {
	catalog    string
	sentinel   string
	delimiter  string
	currency   string
	precedence Precedence
	groupBy    GroupBy

	// exclude holds the denylist of each taxonomy.
	exclude map[model.Taxonomy]KeywordFilter
}

// NewReconciler creates a Reconciler. Defaults: sentinel "Others",
// delimiter "; ", currency "€", type precedence, (name key, price) grouping,
// no exclusions.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		sentinel:   model.DefaultSentinel,
		delimiter:  model.DefaultDelimiter,
		currency:   model.DefaultCurrency,
		precedence: PrecedenceType,
		groupBy:    GroupByNameKeyPrice,
		exclude:    make(map[model.Taxonomy]KeywordFilter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// joinedRow is one row of the outer join, before aggregation.
type joinedRow struct {
	nameKey  string
	name     string
	price    decimal.NullDecimal
	typeCat  string
	usageCat string
}

// Reconcile joins type and usage items into a canonical table.
// The inputs are not modified.
func (r *Reconciler) Reconcile(typeItems, usageItems []model.NormalizedItem) (*model.CanonicalTable, model.ReconcileStats) {
	stats := model.ReconcileStats{TypeRows: len(typeItems), UsageRows: len(usageItems)}

	types := r.filter(model.TaxonomyType, typeItems, &stats)
	usages := r.filter(model.TaxonomyUsage, usageItems, &stats)

	rows := r.join(types, usages)
	stats.Joined = len(rows)

	table := r.newTable(false)
	table.Products = r.group(rows)
	stats.Products = len(table.Products)
	return table, stats
}

// ReconcileTables validates two raw tables and reconciles them.
// Missing columns in either table abort with a SchemaError per table.
func (r *Reconciler) ReconcileTables(typeTable, usageTable *model.Table) (*model.CanonicalTable, model.ReconcileStats, error) {
	typeItems, typeErr := ItemsFromTable(typeTable, model.TaxonomyType, r.currency)
	usageItems, usageErr := ItemsFromTable(usageTable, model.TaxonomyUsage, r.currency)
	if err := errors.Join(typeErr, usageErr); err != nil {
		return nil, model.ReconcileStats{}, err
	}
	table, stats := r.Reconcile(typeItems, usageItems)
	return table, stats, nil
}

func (r *Reconciler) newTable(single bool) *model.CanonicalTable {
	return &model.CanonicalTable{
		Catalog:        r.catalog,
		Currency:       r.currency,
		Delimiter:      r.delimiter,
		SingleTaxonomy: single,
		Products:       []model.CanonicalProduct{},
	}
}

// filter drops items matched by the denylist of tx.
func (r *Reconciler) filter(tx model.Taxonomy, items []model.NormalizedItem, stats *model.ReconcileStats) []model.NormalizedItem {
	f := r.exclude[tx]
	if f.Empty() {
		return items
	}
	kept := make([]model.NormalizedItem, 0, len(items))
	for _, it := range items {
		if f.Excludes(it.Name) {
			stats.Excluded++
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// join performs the outer join on name key. Keys are visited in order of
// first appearance, type items first; a key present on both sides yields
// one row per (type item, usage item) pair.
func (r *Reconciler) join(types, usages []model.NormalizedItem) []joinedRow {
	var order []string
	seen := make(map[string]bool)
	byType := make(map[string][]model.NormalizedItem)
	byUsage := make(map[string][]model.NormalizedItem)

	for _, it := range types {
		if !seen[it.NameKey] {
			seen[it.NameKey] = true
			order = append(order, it.NameKey)
		}
		byType[it.NameKey] = append(byType[it.NameKey], it)
	}
	for _, it := range usages {
		if !seen[it.NameKey] {
			seen[it.NameKey] = true
			order = append(order, it.NameKey)
		}
		byUsage[it.NameKey] = append(byUsage[it.NameKey], it)
	}

	rows := make([]joinedRow, 0, len(types)+len(usages))
	for _, key := range order {
		ts, us := byType[key], byUsage[key]
		switch {
		case len(ts) > 0 && len(us) > 0:
			for _, t := range ts {
				for _, u := range us {
					rows = append(rows, r.combine(key, t, u))
				}
			}
		case len(ts) > 0:
			for _, t := range ts {
				rows = append(rows, joinedRow{
					nameKey: key, name: t.Name, price: t.Price,
					typeCat: r.label(t.Category), usageCat: r.sentinel,
				})
			}
		default:
			for _, u := range us {
				rows = append(rows, joinedRow{
					nameKey: key, name: u.Name, price: u.Price,
					typeCat: r.sentinel, usageCat: r.label(u.Category),
				})
			}
		}
	}
	return rows
}

// combine merges a matched pair: the first non-empty name and the first
// non-null price, the side with precedence first.
func (r *Reconciler) combine(key string, t, u model.NormalizedItem) joinedRow {
	primary, secondary := t, u
	if r.precedence == PrecedenceUsage {
		primary, secondary = u, t
	}
	row := joinedRow{
		nameKey:  key,
		name:     primary.Name,
		price:    primary.Price,
		typeCat:  r.label(t.Category),
		usageCat: r.label(u.Category),
	}
	if row.name == "" {
		row.name = secondary.Name
	}
	if !row.price.Valid {
		row.price = secondary.Price
	}
	return row
}

// label replaces an empty category with the sentinel.
func (r *Reconciler) label(category string) string {
	if category == "" {
		return r.sentinel
	}
	return category
}

type aggregate struct {
	name   string
	price  decimal.NullDecimal
	types  map[string]struct{}
	usages map[string]struct{}
}

func (r *Reconciler) groupKey(row joinedRow) string {
	if r.groupBy == GroupByNameKey {
		return row.nameKey
	}
	return row.nameKey + "\x00" + model.PriceKey(row.price)
}

// group aggregates joined rows, preserving first-appearance order.
func (r *Reconciler) group(rows []joinedRow) []model.CanonicalProduct {
	index := make(map[string]*aggregate)
	var order []*aggregate
	for _, row := range rows {
		key := r.groupKey(row)
		agg, ok := index[key]
		if !ok {
			agg = &aggregate{
				name:   row.name,
				price:  row.price,
				types:  make(map[string]struct{}),
				usages: make(map[string]struct{}),
			}
			index[key] = agg
			order = append(order, agg)
		}
		agg.types[row.typeCat] = struct{}{}
		agg.usages[row.usageCat] = struct{}{}
	}

	products := make([]model.CanonicalProduct, 0, len(order))
	for _, agg := range order {
		products = append(products, model.CanonicalProduct{
			Name:           agg.name,
			Price:          agg.price,
			TypeCategories: sortedSet(agg.types),
			UseCategories:  sortedSet(agg.usages),
		})
	}
	return products
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
