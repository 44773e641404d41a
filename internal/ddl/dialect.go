// Package ddl defines a small model for SQL DDL and renders CREATE/DROP
// statements for the supported backends.
//
// The renderer:
//   - Quotes every identifier segment with the dialect's quoting rule.
//   - Renders PRIMARY KEY as a separate table constraint.
//   - Does not emit IF NOT EXISTS; callers drop the table first.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures what differs between backends when rendering DDL.
type Dialect struct {
	Name  string
	Open  string
	Close string
	Types map[Kind]string
}

var (
	SQLite = Dialect{
		Name: "sqlite", Open: `"`, Close: `"`,
		Types: map[Kind]string{KindText: "TEXT", KindNumber: "REAL", KindTimestamp: "TEXT"},
	}
	Postgres = Dialect{
		Name: "postgres", Open: `"`, Close: `"`,
		Types: map[Kind]string{KindText: "TEXT", KindNumber: "DOUBLE PRECISION", KindTimestamp: "TIMESTAMP"},
	}
	MySQL = Dialect{
		Name: "mysql", Open: "`", Close: "`",
		Types: map[Kind]string{KindText: "TEXT", KindNumber: "DOUBLE", KindTimestamp: "DATETIME"},
	}
	MSSQL = Dialect{
		Name: "mssql", Open: "[", Close: "]",
		Types: map[Kind]string{KindText: "NVARCHAR(MAX)", KindNumber: "FLOAT", KindTimestamp: "DATETIME2"},
	}
)

// Type maps a logical kind to the dialect's column type. Unknown kinds
// fall back to the text type.
func (d Dialect) Type(k Kind) string {
	if s, ok := d.Types[k]; ok {
		return s
	}
	return d.Types[KindText]
}

// Quote quotes one identifier segment, doubling any closing quote inside it.
func (d Dialect) Quote(id string) string {
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// QuoteFQN quotes each dotted segment of fqn; empty segments are skipped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes a list of column names.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// DropTable renders DROP TABLE IF EXISTS for fqn.
func (d Dialect) DropTable(fqn string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(fqn)
}

// CreateTable renders a CREATE TABLE statement of the form:
//
//	CREATE TABLE "table" (
//	  "col1" TYPE [NOT NULL],
//	  "col2" TYPE,
//	  PRIMARY KEY ("pk1", "pk2")
//	);
func (d Dialect) CreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			typ = d.Type(c.Kind)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// Placeholders renders n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
