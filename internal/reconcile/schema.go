package reconcile

import (
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/normalize"
)

// ValidateColumns returns a *SchemaError naming the required columns absent
// from t, or nil. A nil table misses every column.
func ValidateColumns(t *model.Table, required ...string) error {
	if t == nil {
		return &SchemaError{Table: "<nil>", Missing: required}
	}
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return &SchemaError{Table: t.Name, Missing: missing}
	}
	return nil
}

// ItemsFromTable reads the normalized items of a raw taxonomy table.
// The category column is "Category", or the taxonomy column name
// ("Product category", "Use category") when the former is absent.
func ItemsFromTable(t *model.Table, tx model.Taxonomy, currency string) ([]model.NormalizedItem, error) {
	raws, err := RawItemsFromTable(t, tx, currency)
	if err != nil {
		return nil, err
	}
	return normalize.Items(raws), nil
}

// RawItemsFromTable reads the rows of a raw taxonomy table as scraped items.
// Column resolution is the same as in ItemsFromTable.
func RawItemsFromTable(t *model.Table, tx model.Taxonomy, currency string) ([]model.RawItem, error) {
	if t == nil {
		return nil, &SchemaError{Table: "<nil>", Missing: model.RawColumns(currency)}
	}
	priceCol := model.PriceColumn(currency)
	missing := t.MissingColumns(model.ColumnProductName, priceCol)
	catIdx := categoryIndex(t, tx)
	if catIdx < 0 {
		missing = append(missing, model.ColumnCategory)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Table: t.Name, Missing: missing}
	}

	nameIdx := t.ColumnIndex(model.ColumnProductName)
	priceIdx := t.ColumnIndex(priceCol)
	raws := make([]model.RawItem, 0, t.Len())
	for i := range t.Rows {
		raws = append(raws, model.RawItem{
			Name:      t.Cell(i, nameIdx),
			PriceText: t.Cell(i, priceIdx),
			Category:  t.Cell(i, catIdx),
			Taxonomy:  tx,
		})
	}
	return raws, nil
}

func categoryIndex(t *model.Table, tx model.Taxonomy) int {
	if i := t.ColumnIndex(model.ColumnCategory); i >= 0 {
		return i
	}
	return t.ColumnIndex(tx.CategoryColumn())
}
