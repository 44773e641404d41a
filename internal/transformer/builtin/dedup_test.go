package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/table"
	"github.com/bendy2509/etl-projet-1/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(vs ...table.Value) []table.Value { return vs }

func TestDropDuplicates(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "amount", "at"}

	tests := []struct {
		name        string
		rows        [][]table.Value
		wantRemoved int
		wantIDs     []string
	}{
		{
			name:    "no duplicates",
			rows:    [][]table.Value{row(table.Str("a"), table.Num(1), table.Null()), row(table.Str("b"), table.Num(1), table.Null())},
			wantIDs: []string{"a", "b"},
		},
		{
			name: "keeps first occurrence and order",
			rows: [][]table.Value{
				row(table.Str("b"), table.Num(2), table.Timestamp(ts)),
				row(table.Str("a"), table.Num(1), table.Null()),
				row(table.Str("b"), table.Num(2), table.Timestamp(ts)),
				row(table.Str("c"), table.Num(3), table.Null()),
				row(table.Str("a"), table.Num(1), table.Null()),
			},
			wantRemoved: 2,
			wantIDs:     []string{"b", "a", "c"},
		},
		{
			name: "nulls compare equal",
			rows: [][]table.Value{
				row(table.Null(), table.Null(), table.Null()),
				row(table.Null(), table.Null(), table.Null()),
			},
			wantRemoved: 1,
			wantIDs:     []string{""},
		},
		{
			name: "kind matters",
			rows: [][]table.Value{
				row(table.Str("1"), table.Num(1), table.Null()),
				row(table.Str("1"), table.Str("1"), table.Null()),
			},
			wantIDs: []string{"1", "1"},
		},
		{
			name: "string boundaries are encoded",
			rows: [][]table.Value{
				row(table.Str("ab"), table.Str("c"), table.Null()),
				row(table.Str("a"), table.Str("bc"), table.Null()),
			},
			wantIDs: []string{"ab", "a"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := table.MustFromRows("t", cols, tt.rows...)
			out, removed := DropDuplicates(in)
			assert.Equal(t, tt.wantRemoved, removed)

			var ids []string
			for i := 0; i < out.Len(); i++ {
				ids = append(ids, out.Get(i, "id").String())
			}
			assert.Equal(t, tt.wantIDs, ids)

			again, removedAgain := DropDuplicates(out)
			assert.Zero(t, removedAgain, "idempotent")
			assert.Same(t, out, again)
		})
	}
}

func TestDedupStage(t *testing.T) {
	t.Parallel()

	s := table.NewStore()
	dup := row(table.Str("x"), table.Num(1))
	s.Put("sellers", table.MustFromRows("sellers", []string{"seller_id", "n"}, dup, row(table.Str("y"), table.Num(1)), row(table.Str("x"), table.Num(1))))
	clean := table.MustFromRows("customers", []string{"customer_id"}, row(table.Str("c")))
	s.Put("customers", clean)

	out, err := Dedup{Log: testutil.NewTestLogger(t)}.Apply(context.Background(), s)
	require.NoError(t, err)

	sellers, _ := out.Get("sellers")
	assert.Equal(t, 2, sellers.Len())
	customers, _ := out.Get("customers")
	assert.Same(t, clean, customers, "zero duplicates is a no-op")
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 25.0, Percent(1, 4))
	assert.Equal(t, 33.33, Percent(1, 3))
}
