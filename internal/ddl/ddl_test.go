package ddl

import (
	"testing"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		dialect     Dialect
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			dialect:     SQLite,
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Kind: KindText}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			dialect:     SQLite,
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			dialect:     Postgres,
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " "}}},
			errContains: "column with empty name",
		},
		{
			name:    "sqlite nullable columns",
			dialect: SQLite,
			def: TableDef{FQN: "fact_order_items", Columns: []ColumnDef{
				{Name: "order_id", Kind: KindText, Nullable: true},
				{Name: "price", Kind: KindNumber, Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"fact_order_items\" (\n  \"order_id\" TEXT,\n  \"price\" REAL\n);",
		},
		{
			name:    "postgres schema qualified with primary key",
			dialect: Postgres,
			def: TableDef{FQN: "olist.monthly_revenue", Columns: []ColumnDef{
				{Name: "year_month", SQLType: "TEXT", PrimaryKey: true},
				{Name: "revenue", Kind: KindNumber, Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"olist\".\"monthly_revenue\" (\n  \"year_month\" TEXT NOT NULL,\n  \"revenue\" DOUBLE PRECISION,\n  PRIMARY KEY (\"year_month\")\n);",
		},
		{
			name:    "mssql brackets",
			dialect: MSSQL,
			def: TableDef{FQN: "dbo.t", Columns: []ColumnDef{
				{Name: "a]b", Kind: KindTimestamp, Nullable: true},
			}},
			wantSQL: "CREATE TABLE [dbo].[t] (\n  [a]]b] DATETIME2\n);",
		},
		{
			name:    "mysql backticks",
			dialect: MySQL,
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "n", Kind: KindNumber, Nullable: true},
			}},
			wantSQL: "CREATE TABLE `t` (\n  `n` DOUBLE\n);",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.dialect.CreateTable(tt.def)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
		})
	}
}

func TestDropTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `DROP TABLE IF EXISTS "main"."t"`, SQLite.DropTable("main.t"))
	assert.Equal(t, "DROP TABLE IF EXISTS [t]", MSSQL.DropTable("t"))
}

func TestInferKind(t *testing.T) {
	t.Parallel()

	ts := table.Timestamp(time.Date(2018, 1, 2, 3, 4, 0, 0, time.UTC))
	tests := []struct {
		name string
		vals []table.Value
		want Kind
	}{
		{name: "empty", want: KindText},
		{name: "all null", vals: []table.Value{table.Null(), table.Null()}, want: KindText},
		{name: "numbers with nulls", vals: []table.Value{table.Null(), table.Num(1), table.Num(2.5)}, want: KindNumber},
		{name: "timestamps", vals: []table.Value{ts, table.Null()}, want: KindTimestamp},
		{name: "mixed", vals: []table.Value{table.Num(1), table.Str("x")}, want: KindText},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InferKind(tt.vals))
		})
	}
}

func TestFromTable(t *testing.T) {
	t.Parallel()

	tb := table.MustFromRows("delivery_metrics", []string{"metric", "value"},
		[]table.Value{table.Str("mean"), table.Num(12.5)},
		[]table.Value{table.Str("median"), table.Null()},
	)
	def := FromTable(tb, "olist", Postgres)
	assert.Equal(t, "olist.delivery_metrics", def.FQN)
	require.Len(t, def.Columns, 2)
	assert.Equal(t, ColumnDef{Name: "metric", Kind: KindText, SQLType: "TEXT", Nullable: true}, def.Columns[0])
	assert.Equal(t, "DOUBLE PRECISION", def.Columns[1].SQLType)

	assert.Equal(t, "delivery_metrics", FromTable(tb, "", SQLite).FQN)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}
