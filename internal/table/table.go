package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the
	// table does not have.
	ErrColumnNotFound = errors.New("column not found")
	// ErrRaggedRow is returned when a row does not match the column count.
	ErrRaggedRow = errors.New("row width does not match columns")
)

// Table is a named, ordered collection of rows sharing one column set.
// Rows are positional and aligned to Columns.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Value

	index map[string]int
}

// New returns an empty table with the given columns.
func New(name string, columns []string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Col returns the position of a column.
func (t *Table) Col(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	return i, ok
}

// Has reports whether every named column exists.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.Col(n); !ok {
			return false
		}
	}
	return true
}

// Append adds a row. The row is stored as given, not copied.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: %w: got %d, want %d", t.Name, ErrRaggedRow, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Get returns the cell at row i for the named column, or Null when the
// column does not exist.
func (t *Table) Get(i int, name string) Value {
	c, ok := t.Col(name)
	if !ok {
		return Null()
	}
	return t.Rows[i][c]
}

// Column returns a copy of one column's values.
func (t *Table) Column(name string) ([]Value, error) {
	c, ok := t.Col(name)
	if !ok {
		return nil, fmt.Errorf("table %s: %w: %s", t.Name, ErrColumnNotFound, name)
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[c]
	}
	return out, nil
}

// SetColumn replaces an existing column or appends a new one.
func (t *Table) SetColumn(name string, vals []Value) error {
	if len(vals) != len(t.Rows) {
		return fmt.Errorf("table %s: set %s: %w: got %d values for %d rows", t.Name, name, ErrRaggedRow, len(vals), len(t.Rows))
	}
	if c, ok := t.Col(name); ok {
		for i := range t.Rows {
			t.Rows[i][c] = vals[i]
		}
		return nil
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], vals[i])
	}
	return nil
}

// DropColumns removes the named columns that exist and returns the names
// actually dropped.
func (t *Table) DropColumns(names ...string) []string {
	drop := make(map[int]struct{}, len(names))
	var dropped []string
	for _, n := range names {
		if c, ok := t.Col(n); ok {
			if _, seen := drop[c]; !seen {
				drop[c] = struct{}{}
				dropped = append(dropped, n)
			}
		}
	}
	if len(drop) == 0 {
		return nil
	}
	keep := make([]int, 0, len(t.Columns)-len(drop))
	cols := make([]string, 0, len(t.Columns)-len(drop))
	for i, c := range t.Columns {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	for ri, r := range t.Rows {
		nr := make([]Value, len(keep))
		for j, k := range keep {
			nr[j] = r[k]
		}
		t.Rows[ri] = nr
	}
	t.Columns = cols
	t.reindex()
	return dropped
}

// Clone returns a deep copy that can be mutated without touching t.
func (t *Table) Clone() *Table {
	c := New(t.Name, t.Columns)
	c.Rows = make([][]Value, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]Value(nil), r...)
	}
	return c
}

// Filter returns a new table holding the rows for which keep returns true,
// in their original order. Row slices are shared with t.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	out := New(t.Name, t.Columns)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Select returns a new table restricted to the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, ok := t.Col(n)
		if !ok {
			return nil, fmt.Errorf("table %s: %w: %s", t.Name, ErrColumnNotFound, n)
		}
		idx[i] = c
	}
	out := New(t.Name, names)
	out.Rows = make([][]Value, len(t.Rows))
	for ri, r := range t.Rows {
		nr := make([]Value, len(idx))
		for j, c := range idx {
			nr[j] = r[c]
		}
		out.Rows[ri] = nr
	}
	return out, nil
}

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// MissingCounts returns the number of nulls per column, in column order.
func (t *Table) MissingCounts() []ColumnCount {
	out := make([]ColumnCount, len(t.Columns))
	for i, c := range t.Columns {
		out[i].Column = c
	}
	for _, r := range t.Rows {
		for i, v := range r {
			if v.IsNull() {
				out[i].Count++
			}
		}
	}
	return out
}

// HasMissing reports whether any cell is null.
func (t *Table) HasMissing() bool {
	for _, r := range t.Rows {
		for _, v := range r {
			if v.IsNull() {
				return true
			}
		}
	}
	return false
}

// RowsEqual reports whether two rows hold equal cells position by position.
func RowsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// MustFromRows builds a table from literal rows and panics on a width
// mismatch. It is meant for fixtures.
func MustFromRows(name string, columns []string, rows ...[]Value) *Table {
	t := New(name, columns)
	for _, r := range rows {
		if err := t.Append(r); err != nil {
			panic(err)
		}
	}
	return t
}
