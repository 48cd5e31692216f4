package model

// Column names of the persisted tables.
const (
	ColumnProductName     = "Product name"
	ColumnCategory        = "Category"
	ColumnProductCategory = "Product category"
	ColumnUseCategory     = "Use category"

	// DefaultCurrency is the currency symbol used in the price column name.
	DefaultCurrency = "€"
)

// PriceColumn returns the price column name for the given currency symbol.
func PriceColumn(currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return "Price (" + currency + ")"
}

// RawColumns returns the required columns of a raw per-taxonomy table.
func RawColumns(currency string) []string {
	return []string{ColumnProductName, PriceColumn(currency), ColumnCategory}
}

// Table is a header plus string rows. It is the exchange format between the
// scraper, the reconciler and the sinks.
type Table struct {
	// Name identifies the table in error messages and file names.
	Name string `json:"name"`

	// Header holds the column names in order.
	Header []string `json:"header"`

	// Rows holds the cell values. Rows shorter than Header are padded with
	// empty cells when read.
	Rows [][]string `json:"rows"`
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// MissingColumns returns the required columns absent from the header, in the
// order they were requested.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, col := range required {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}

// Cell returns the value at row i for column index col, or "" when out of range.
func (t *Table) Cell(i, col int) string {
	if i < 0 || i >= len(t.Rows) || col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// NewRawTable builds the persisted raw table of one taxonomy from normalized items.
// The price column holds the numeric price or an empty cell.
func NewRawTable(name, currency string, items []NormalizedItem) *Table {
	t := &Table{
		Name:   name,
		Header: RawColumns(currency),
		Rows:   make([][]string, 0, len(items)),
	}
	for _, it := range items {
		t.Rows = append(t.Rows, []string{it.Name, FormatPrice(it.Price), it.Category})
	}
	return t
}
