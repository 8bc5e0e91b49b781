package spcall

import (
	"encoding/json"
	"reflect"
)

// TableColumn describes one column of a tabular payload. Type is the
// column's underlying type; Nullable marks columns read through a pointer.
type TableColumn struct {
	Name     string
	Type     reflect.Type
	Nullable bool
}

// Table is a tabular payload passed as a single table-valued parameter.
type Table struct {
	// TypeName names the database table type, when the dialect needs one.
	TypeName string
	Columns  []TableColumn
	Rows     [][]any
}

// Column reads one column value out of a collection element.
type Column[E any] struct {
	TableColumn
	get func(E) any
}

// Col declares a column whose values are read as-is.
func Col[E any, V any](property string, get func(E) V) Column[E] {
	return Column[E]{
		TableColumn: TableColumn{Name: lowerFirst(property), Type: typeOf[V]()},
		get:         func(e E) any { return get(e) },
	}
}

// NullCol declares a nullable column. Nil pointers become nil cells and
// the column is typed by the pointed-to type.
func NullCol[E any, V any](property string, get func(E) *V) Column[E] {
	return Column[E]{
		TableColumn: TableColumn{Name: lowerFirst(property), Type: typeOf[V](), Nullable: true},
		get: func(e E) any {
			if v := get(e); v != nil {
				return *v
			}
			return nil
		},
	}
}

// NewTable materializes elems into a table, one row per element in
// iteration order.
func NewTable[E any](elems []E, cols ...Column[E]) *Table {
	t := &Table{
		Columns: make([]TableColumn, len(cols)),
		Rows:    make([][]any, 0, len(elems)),
	}
	for i, c := range cols {
		t.Columns[i] = c.TableColumn
	}
	for _, e := range elems {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = c.get(e)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// MarshalJSON encodes the table as an array of objects keyed by column name.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		obj := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			obj[col.Name] = row[j]
		}
		out[i] = obj
	}
	return json.Marshal(out)
}
