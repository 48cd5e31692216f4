package model

// PriceChange describes a product whose price differs between two runs.
type PriceChange struct {
	Name   string `json:"name"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// CategoryChange describes a product whose category sets differ between two runs.
type CategoryChange struct {
	Name        string `json:"name"`
	TypeBefore  string `json:"type_before"`
	TypeAfter   string `json:"type_after"`
	UsageBefore string `json:"usage_before"`
	UsageAfter  string `json:"usage_after"`
}

// CatalogDiff is the difference between two canonical tables of the same catalog.
type CatalogDiff struct {
	Added           []CanonicalProduct `json:"added"`
	Removed         []CanonicalProduct `json:"removed"`
	PriceChanged    []PriceChange      `json:"price_changed"`
	CategoryChanged []CategoryChange   `json:"category_changed"`
}

// Empty reports whether the two tables held the same products.
func (d *CatalogDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.PriceChanged) == 0 && len(d.CategoryChanged) == 0
}

// Diff compares two canonical tables.
//
// Rows with the same name key and price on both sides are the same product
// and are only checked for category changes. Among the remaining rows, a
// name key left with exactly one row on each side is a price change. Every
// other remaining row is added or removed, so price variants of one name
// are reported individually.
// Results follow the row order of the table they come from.
func Diff(before, after *CanonicalTable) *CatalogDiff {
	d := &CatalogDiff{}

	// Pair rows with identical name key and price.
	pending := make(map[string][]int, len(before.Products))
	for i, p := range before.Products {
		k := productKey(p)
		pending[k] = append(pending[k], i)
	}
	match := make([]int, len(after.Products))
	matched := make([]bool, len(before.Products))
	for j, p := range after.Products {
		match[j] = -1
		k := productKey(p)
		if idx := pending[k]; len(idx) > 0 {
			match[j] = idx[0]
			matched[idx[0]] = true
			pending[k] = idx[1:]
		}
	}

	// Pair the leftovers of a name key when exactly one row remains per side.
	oldLeft := make(map[string][]int)
	for i, p := range before.Products {
		if !matched[i] {
			k := NameKey(p.Name)
			oldLeft[k] = append(oldLeft[k], i)
		}
	}
	newLeft := make(map[string]int)
	for j, p := range after.Products {
		if match[j] < 0 {
			newLeft[NameKey(p.Name)]++
		}
	}
	repriced := make([]bool, len(after.Products))
	for j, p := range after.Products {
		if match[j] >= 0 {
			continue
		}
		k := NameKey(p.Name)
		if newLeft[k] == 1 && len(oldLeft[k]) == 1 {
			match[j] = oldLeft[k][0]
			matched[match[j]] = true
			repriced[j] = true
		}
	}

	for j, p := range after.Products {
		if match[j] < 0 {
			d.Added = append(d.Added, p)
			continue
		}
		prev := before.Products[match[j]]
		if repriced[j] {
			d.PriceChanged = append(d.PriceChanged, PriceChange{
				Name:   p.Name,
				Before: FormatPrice(prev.Price),
				After:  FormatPrice(p.Price),
			})
		}
		tb, ta := before.Join(prev.TypeCategories), after.Join(p.TypeCategories)
		ub, ua := before.Join(prev.UseCategories), after.Join(p.UseCategories)
		if tb != ta || ub != ua {
			d.CategoryChanged = append(d.CategoryChanged, CategoryChange{
				Name:        p.Name,
				TypeBefore:  tb,
				TypeAfter:   ta,
				UsageBefore: ub,
				UsageAfter:  ua,
			})
		}
	}

	for i, p := range before.Products {
		if !matched[i] {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}

func productKey(p CanonicalProduct) string {
	return NameKey(p.Name) + "\x00" + PriceKey(p.Price)
}
