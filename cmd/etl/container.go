package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bendy2509/etl-projet-1/internal/aggregate"
	"github.com/bendy2509/etl-projet-1/internal/config"
	"github.com/bendy2509/etl-projet-1/internal/datasource"
	"github.com/bendy2509/etl-projet-1/internal/datasource/file"
	"github.com/bendy2509/etl-projet-1/internal/datasource/httpds"
	"github.com/bendy2509/etl-projet-1/internal/extract"
	"github.com/bendy2509/etl-projet-1/internal/fact"
	"github.com/bendy2509/etl-projet-1/internal/join"
	"github.com/bendy2509/etl-projet-1/internal/load"
	"github.com/bendy2509/etl-projet-1/internal/metrics"
	"github.com/bendy2509/etl-projet-1/internal/metrics/datadog"
	"github.com/bendy2509/etl-projet-1/internal/metrics/prompush"
	csvparser "github.com/bendy2509/etl-projet-1/internal/parser/csv"
	"github.com/bendy2509/etl-projet-1/internal/report"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"
	"github.com/bendy2509/etl-projet-1/internal/transformer"
	"github.com/bendy2509/etl-projet-1/internal/transformer/builtin"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// container wires one run: its catalog, stage chain, report and sinks.
type container struct {
	cfg   config.Pipeline
	log   *slog.Logger
	out   io.Writer
	runID string
	clock clockwork.Clock

	catalog datasource.Catalog
	hows    map[string]join.How

	// openRepo opens the relational sink; tests replace it.
	openRepo func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

func newContainer(cfg config.Pipeline, log *slog.Logger, out io.Writer) (*container, error) {
	runID := uuid.NewString()
	c := &container{
		cfg:      cfg,
		log:      log.With("run", runID),
		out:      out,
		runID:    runID,
		clock:    clockwork.NewRealClock(),
		openRepo: storage.New,
	}

	cat, err := buildCatalog(cfg.Source)
	if err != nil {
		return nil, err
	}
	c.catalog = cat

	c.hows = make(map[string]join.How, len(cfg.Fact.Joins))
	for name, v := range cfg.Fact.Joins {
		how, err := join.ParseHow(v)
		if err != nil {
			return nil, fmt.Errorf("fact.joins.%s: %w", name, err)
		}
		c.hows[name] = how
	}
	return c, nil
}

func buildCatalog(src config.Source) (datasource.Catalog, error) {
	if src.BaseURL != "" {
		client := httpds.NewClient(httpds.Config{MaxRetries: 3})
		return httpds.NewCatalog(client, src.BaseURL)
	}
	return file.NewDir(src.Dir), nil
}

// metricsBackend installs the configured backend and returns the function
// that flushes and restores the previous one.
func (c *container) metricsBackend() (func(), error) {
	m := c.cfg.Metrics
	var b metrics.Backend
	switch m.Backend {
	case "", "none":
		return func() {}, nil
	case "prompush":
		pb, err := prompush.NewBackend(c.cfg.Job, c.runID, m.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:      m.DatadogAddr,
			Namespace: m.Namespace,
			Tags:      []string{"job:" + c.cfg.Job},
		})
		if err != nil {
			return nil, err
		}
		b = db
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	restore := metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			c.log.Warn("metrics flush failed", "backend", m.Backend, "err", err)
		}
		restore()
	}, nil
}

func (c *container) csvOptions() csvparser.Options {
	s := c.cfg.Source
	opt := csvparser.Options{
		TrimSpace:        s.TrimSpace,
		Encoding:         s.Encoding,
		NormalizeUnicode: s.NormalizeUnicode,
	}
	if s.Comma != "" {
		opt.Comma, _ = utf8.DecodeRuneInString(s.Comma)
	}
	return opt
}

func (c *container) extract(ctx context.Context, tables []string) (*table.Store, error) {
	if len(tables) == 0 {
		tables = schema.SourceTables
	}
	start := c.clock.Now()
	s, err := extract.Extract(ctx, c.catalog, extract.Options{
		Tables:    tables,
		Contracts: schema.Olist(),
		Workers:   c.cfg.Runtime.ReaderWorkers,
		CSV:       c.csvOptions(),
		Run:       c.runID,
		Log:       c.log,
	})
	metrics.RecordStep(c.runID, "extract", err, c.clock.Since(start))
	if err != nil {
		return nil, err
	}
	c.log.Info("extract done", "tables", s.Len(), "elapsed", c.clock.Since(start))
	return s, nil
}

// chain is the transform phase: cleaning, fact building, aggregation.
func (c *container) chain() transformer.Chain {
	dateCols := c.cfg.Dates.Columns
	if len(dateCols) == 0 {
		dateCols = schema.DefaultDateColumns()
	}

	b := fact.NewBuilder(c.hows, c.log)
	b.Diagnose = c.cfg.Fact.Diagnose

	return transformer.Chain{
		builtin.ParseDates{
			Columns:      dateCols,
			Policy:       c.cfg.Dates.Policy,
			Layout:       c.cfg.Dates.Layout,
			DetectByName: c.cfg.Dates.DetectByName,
			Log:          c.log,
		},
		builtin.Dedup{RunID: c.runID, Log: c.log},
		builtin.DropColumns{Columns: c.cfg.Transform.DropColumns, Log: c.log},
		builtin.ResolveMissing{
			Policies: builtin.DefaultPolicies(c.cfg.Missing.CategorySentinel),
			RunID:    c.runID,
			Log:      c.log,
		},
		b,
		aggregate.Aggregator{TopN: c.cfg.Metrics.TopN, Log: c.log},
	}
}

func (c *container) renderer() report.Renderer {
	return report.Renderer{W: c.out, Markdown: c.cfg.Output.Markdown}
}

// run executes extract and transform, prints the report and, when load is
// set, writes the derived tables to the configured sinks.
func (c *container) run(ctx context.Context, loadOutputs bool) error {
	done, err := c.metricsBackend()
	if err != nil {
		return err
	}
	defer done()

	c.log.Info("run started", "job", c.cfg.Job)
	start := c.clock.Now()

	s, err := c.extract(ctx, nil)
	if err != nil {
		return err
	}

	r := transformer.Runner{RunID: c.runID, Log: c.log, Clock: c.clock}
	s, err = r.Run(ctx, c.chain(), s)
	if err != nil {
		return err
	}

	c.report(s)

	if loadOutputs {
		if err := c.load(ctx, s); err != nil {
			return err
		}
	}
	c.log.Info("run finished", "elapsed", c.clock.Since(start))
	return nil
}

func (c *container) report(s *table.Store) {
	rr := c.renderer()
	if n := c.cfg.Output.Preview; n > 0 {
		for _, name := range load.DerivedTables {
			if t, ok := s.Get(name); ok {
				rr.Preview(t, n)
			}
		}
	}
	rr.Summary(s, c.clock.Now())
}

func (c *container) load(ctx context.Context, s *table.Store) error {
	l := load.Loader{RunID: c.runID, Log: c.log}

	if c.cfg.Output.CSV {
		start := c.clock.Now()
		_, err := l.WriteCSV(ctx, s, c.cfg.Output.Dir, load.DerivedTables)
		metrics.RecordStep(c.runID, "load_csv", err, c.clock.Since(start))
		if err != nil {
			return err
		}
	}

	st := c.cfg.Storage
	if st.Kind == "none" {
		return nil
	}
	if st.Kind == "sqlite" {
		if err := ensureSQLiteDir(st.DSN); err != nil {
			return err
		}
	}

	start := c.clock.Now()
	repo, err := c.openRepo(ctx, storage.Config{
		Kind:      st.Kind,
		DSN:       st.DSN,
		Schema:    st.Schema,
		BatchSize: st.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("open %s storage: %w", st.Kind, err)
	}
	defer repo.Close()

	_, err = l.WriteRelational(ctx, repo, s, load.DerivedTables)
	metrics.RecordStep(c.runID, "load_"+st.Kind, err, c.clock.Since(start))
	return err
}

// ensureSQLiteDir creates the parent directory of a file DSN. URI and
// in-memory DSNs are left alone.
func ensureSQLiteDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}

// inspect extracts the named tables (all when empty) and prints their
// profile.
func (c *container) inspect(ctx context.Context, tables []string, head int) error {
	for _, name := range tables {
		if _, ok := schema.Olist()[name]; !ok {
			return fmt.Errorf("unknown table %q (known: %s)", name, strings.Join(schema.SourceTables, ", "))
		}
	}
	s, err := c.extract(ctx, tables)
	if err != nil {
		return err
	}
	rr := c.renderer()
	for _, name := range s.Names() {
		t, _ := s.Get(name)
		rr.Inspect(t, head)
	}
	return nil
}
