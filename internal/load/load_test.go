package load

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/aggregate"
	"github.com/bendy2509/etl-projet-1/internal/fact"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	_ "github.com/bendy2509/etl-projet-1/internal/storage/sqlite"
	"github.com/bendy2509/etl-projet-1/internal/table"
	"github.com/bendy2509/etl-projet-1/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func store() *table.Store {
	s := table.NewStore()
	s.Put(aggregate.MonthlyRevenue, table.MustFromRows(aggregate.MonthlyRevenue,
		[]string{"year_month", "revenue"},
		[]table.Value{table.Str("2026-01"), table.Num(25)},
		[]table.Value{table.Str("2026-02"), table.Num(18.5)},
	))
	s.Put(fact.OrderItems, table.MustFromRows(fact.OrderItems,
		[]string{"order_id", "order_purchase_timestamp", "price"},
		[]table.Value{table.Str("o1"), table.Timestamp(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)), table.Null()},
	))
	return s
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	s := store()
	fi, _ := s.Get(fact.OrderItems)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, fi))
	assert.Equal(t, "order_id,order_purchase_timestamp,price\no1,2026-02-03 04:05:06,\n", buf.String())
}

func TestWriteCSVSkipsAbsentTables(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outputs")
	l := Loader{RunID: "r1", Log: testutil.NewTestLogger(t)}

	res, err := l.WriteCSV(context.Background(), store(), dir, DerivedTables)
	require.NoError(t, err)
	require.Len(t, res, len(DerivedTables))

	byName := map[string]Result{}
	for _, r := range res {
		byName[r.Table] = r
	}
	assert.True(t, byName[aggregate.TopCategories].Skipped)
	assert.Equal(t, int64(2), byName[aggregate.MonthlyRevenue].Rows)

	b, err := os.ReadFile(filepath.Join(dir, "monthly_revenue.csv"))
	require.NoError(t, err)
	assert.Equal(t, "year_month,revenue\n2026-01,25\n2026-02,18.5\n", string(b))

	_, err = os.Stat(filepath.Join(dir, "top_categories.csv"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestWriteRelationalReadsBack(t *testing.T) {
	t.Parallel()

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "etl.db")})
	require.NoError(t, err)
	defer repo.Close()

	l := Loader{RunID: "r1", Log: testutil.NewTestLogger(t)}
	res, err := l.WriteRelational(context.Background(), repo, store(), []string{aggregate.MonthlyRevenue, fact.OrderItems, aggregate.ReviewsMonthly})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, Result{Table: aggregate.MonthlyRevenue, Rows: 2, Target: aggregate.MonthlyRevenue}, res[0])
	assert.Equal(t, int64(1), res[1].Rows)
	assert.True(t, res[2].Skipped)
}

type shortRepo struct{}

func (shortRepo) ReplaceTable(_ context.Context, t *table.Table) (int64, error) {
	return int64(t.Len()), nil
}
func (shortRepo) Count(context.Context, string) (int64, error) { return 0, nil }
func (shortRepo) Close()                                       {}

func TestWriteRelationalCountMismatch(t *testing.T) {
	t.Parallel()

	_, err := Loader{}.WriteRelational(context.Background(), shortRepo{}, store(), []string{aggregate.MonthlyRevenue})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stored 0 rows, want 2")
}

func TestWriteCSVHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Loader{}.WriteCSV(ctx, store(), t.TempDir(), DerivedTables)
	require.ErrorIs(t, err, context.Canceled)
}
