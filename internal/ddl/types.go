package ddl

import "github.com/bendy2509/etl-projet-1/internal/table"

// Kind is the logical type of a column, independent of any SQL dialect.
type Kind string

const (
	KindText      Kind = "text"
	KindNumber    Kind = "number"
	KindTimestamp Kind = "timestamp"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Kind: logical type inferred from the data
//   - SQLType: target SQL type (e.g., TEXT, DOUBLE PRECISION, DATETIME2)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Kind       Kind
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table").
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// InferKind returns the logical kind shared by every non-null value.
// All-null and mixed columns are text.
func InferKind(vals []table.Value) Kind {
	var seen table.Kind
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		if seen == table.KindNull {
			seen = v.Kind()
			continue
		}
		if v.Kind() != seen {
			return KindText
		}
	}
	switch seen {
	case table.KindNumber:
		return KindNumber
	case table.KindTime:
		return KindTimestamp
	default:
		return KindText
	}
}

// FromTable derives a nullable column per table column, typed for d.
// The table name becomes the FQN, prefixed by schema when set.
func FromTable(t *table.Table, schema string, d Dialect) TableDef {
	fqn := t.Name
	if schema != "" {
		fqn = schema + "." + fqn
	}
	cols := make([]ColumnDef, len(t.Columns))
	for i, name := range t.Columns {
		// Cannot fail: name comes from t.Columns.
		vals, _ := t.Column(name)
		k := InferKind(vals)
		cols[i] = ColumnDef{Name: name, Kind: k, SQLType: d.Type(k), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: cols}
}
