// Package types holds the flattened tables shared by every export format.
package types

// ColumnType is the storage class of an exported column.
type ColumnType string

const (
	ColumnText    ColumnType = "TEXT"
	ColumnInteger ColumnType = "INTEGER"
	ColumnReal    ColumnType = "REAL"
)

// Column describes one exported column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is one exported table. Row values are string, int64 or float64
// matching the column types.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
