package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bendy2509/etl-projet-1/internal/aggregate"
	"github.com/bendy2509/etl-projet-1/internal/config"
	"github.com/bendy2509/etl-projet-1/internal/fact"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/storage/sqlite"
	"github.com/bendy2509/etl-projet-1/internal/table"
	"github.com/bendy2509/etl-projet-1/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env"), "--no-color"))
	err := root.ExecuteContext(context.Background())
	t.Log(errOut.String())
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	outDir := filepath.Join(work, "outputs")
	dsn := filepath.Join(work, "db", "etl.db")

	stdout, err := execute(t, "run",
		"--source-dir", filepath.Join("testdata", "olist"),
		"--output-dir", outDir,
		"--storage-kind", "sqlite",
		"--dsn", dsn,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Synthesis")
	assert.Contains(t, stdout, fact.OrderItems)

	assert.Equal(t, "year_month,revenue\n2017-01,165\n2017-02,22\n",
		readFile(t, filepath.Join(outDir, aggregate.MonthlyRevenue+".csv")))
	assert.Equal(t, "product_category,revenue\nbeleza_saude,132\nInconnu,55\n",
		readFile(t, filepath.Join(outDir, aggregate.TopCategories+".csv")))
	assert.Equal(t, "year_month,avg_delivery_days\n2017-01,5\n",
		readFile(t, filepath.Join(outDir, aggregate.DeliveryMetrics+".csv")))
	assert.Equal(t, "year_month,avg_review_score,review_count\n2017-01,5,1\n2017-02,3,1\n",
		readFile(t, filepath.Join(outDir, aggregate.ReviewsMonthly+".csv")))

	repo, closeFn, err := sqlite.NewRepository(context.Background(), sqlite.Config{DSN: dsn})
	require.NoError(t, err)
	defer closeFn()

	want := map[string]int64{
		fact.OrderItems:           3,
		fact.CustomersGeoloc:      2,
		aggregate.MonthlyRevenue:  2,
		aggregate.TopCategories:   2,
		aggregate.DeliveryMetrics: 1,
		aggregate.ReviewsMonthly:  2,
	}
	for name, n := range want {
		got, err := repo.Count(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, n, got, name)
	}
}

func TestTransformDoesNotLoad(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "outputs")
	_, err := execute(t, "transform",
		"--source-dir", filepath.Join("testdata", "olist"),
		"--output-dir", outDir,
		"--storage-kind", "none",
	)
	require.NoError(t, err)

	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))
}

func TestInspect(t *testing.T) {
	t.Parallel()

	stdout, err := execute(t, "inspect", "sellers", "-n", "1",
		"--source-dir", filepath.Join("testdata", "olist"),
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seller_id")
	assert.NotContains(t, stdout, "customer_id")

	_, err = execute(t, "inspect", "nope", "--source-dir", filepath.Join("testdata", "olist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown table")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	stdout, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "configuration is valid")

	_, err = execute(t, "validate", "--source-url", "ftp://example.com/olist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestRunMissingSourceDirSkipsTables(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "outputs")
	_, err := execute(t, "run",
		"--source-dir", t.TempDir(),
		"--output-dir", outDir,
		"--storage-kind", "none",
	)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type fakeRepo struct {
	storage.Repository
	closed bool
}

func (f *fakeRepo) Close() { f.closed = true }

func TestLoadOpensConfiguredBackend(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.LoadOptions{Environ: func() []string { return nil }})
	require.NoError(t, err)
	cfg.Output.CSV = false
	cfg.Storage = config.Storage{Kind: "postgres", DSN: "postgres://x", Schema: "olist", BatchSize: 7}

	c, err := newContainer(cfg, testutil.NewTestLogger(t), &bytes.Buffer{})
	require.NoError(t, err)

	repo := &fakeRepo{}
	var got storage.Config
	c.openRepo = func(_ context.Context, sc storage.Config) (storage.Repository, error) {
		got = sc
		return repo, nil
	}

	// nothing to write: only Close reaches the fake.
	require.NoError(t, c.load(context.Background(), table.NewStore()))
	assert.Equal(t, storage.Config{Kind: "postgres", DSN: "postgres://x", Schema: "olist", BatchSize: 7}, got)
	assert.True(t, repo.closed)
}

func TestNewContainerRejectsBadJoin(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.LoadOptions{Environ: func() []string { return nil }})
	require.NoError(t, err)
	cfg.Fact.Joins = map[string]string{"orders": "cross"}

	_, err = newContainer(cfg, testutil.NewTestLogger(t), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fact.joins.orders")
}

func TestCSVOptionsComma(t *testing.T) {
	t.Parallel()

	c := &container{cfg: config.Pipeline{Source: config.Source{Comma: ";", Encoding: "latin1", TrimSpace: true}}}
	opt := c.csvOptions()
	assert.Equal(t, ';', opt.Comma)
	assert.Equal(t, "latin1", opt.Encoding)
	assert.True(t, opt.TrimSpace)
}

func TestEnsureSQLiteDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, ensureSQLiteDir(filepath.Join(root, "a", "b", "etl.db?_pragma=busy_timeout(5000)")))
	info, err := os.Stat(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, ensureSQLiteDir(":memory:"))
	require.NoError(t, ensureSQLiteDir("file:x.db?mode=memory"))
}
