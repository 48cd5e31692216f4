package reconcile

import "github.com/nao1215/catalogscan/internal/model"

// ReconcileSingle aggregates a single-taxonomy catalog: items are grouped by
// name key, the first name and first price seen win (a null first price
// stays null), and categories are unioned. Type exclusions apply.
// The use category of every product is the sentinel.
func (r *Reconciler) ReconcileSingle(items []model.NormalizedItem) (*model.CanonicalTable, model.ReconcileStats) {
	stats := model.ReconcileStats{TypeRows: len(items)}
	kept := r.filter(model.TaxonomyType, items, &stats)
	stats.Joined = len(kept)

	index := make(map[string]*aggregate)
	var order []*aggregate
	for _, it := range kept {
		agg, ok := index[it.NameKey]
		if !ok {
			agg = &aggregate{
				name:  it.Name,
				price: it.Price,
				types: make(map[string]struct{}),
			}
			index[it.NameKey] = agg
			order = append(order, agg)
		}
		agg.types[r.label(it.Category)] = struct{}{}
	}

	table := r.newTable(true)
	for _, agg := range order {
		table.Products = append(table.Products, model.CanonicalProduct{
			Name:           agg.name,
			Price:          agg.price,
			TypeCategories: sortedSet(agg.types),
			UseCategories:  []string{r.sentinel},
		})
	}
	stats.Products = len(table.Products)
	return table, stats
}

// ReconcileSingleTable validates a raw table and reconciles it with ReconcileSingle.
func (r *Reconciler) ReconcileSingleTable(t *model.Table) (*model.CanonicalTable, model.ReconcileStats, error) {
	items, err := ItemsFromTable(t, model.TaxonomyType, r.currency)
	if err != nil {
		return nil, model.ReconcileStats{}, err
	}
	table, stats := r.ReconcileSingle(items)
	return table, stats, nil
}
