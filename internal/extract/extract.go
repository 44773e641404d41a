// Package extract reads every source table of a run into a table.Store.
// Files are independent, so they are read concurrently; the store is only
// assembled once every read has finished.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bendy2509/etl-projet-1/internal/datasource"
	"github.com/bendy2509/etl-projet-1/internal/metrics"
	csvparser "github.com/bendy2509/etl-projet-1/internal/parser/csv"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"golang.org/x/sync/errgroup"
)

// Options controls one extraction.
type Options struct {
	// Tables to read, in the order they should appear in the store.
	Tables []string
	// Contracts keyed by table name; every entry of Tables needs one.
	Contracts map[string]schema.Contract
	// Workers bounds concurrent reads. Values < 1 mean 1.
	Workers int
	CSV     csvparser.Options
	// Run labels operational metrics.
	Run string
	Log *slog.Logger
}

// Extract reads opt.Tables from cat. A table whose file does not exist is
// skipped with a warning so downstream plans can report it; any other read
// or contract error aborts the whole extraction.
func Extract(ctx context.Context, cat datasource.Catalog, opt Options) (*table.Store, error) {
	log := opt.Log
	if log == nil {
		log = slog.Default()
	}
	for _, name := range opt.Tables {
		if _, ok := opt.Contracts[name]; !ok {
			return nil, fmt.Errorf("extract: no contract for table %q", name)
		}
	}

	csvOpt := opt.CSV
	if csvOpt.Log == nil {
		csvOpt.Log = log
	}

	workers := opt.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*table.Table, len(opt.Tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range opt.Tables {
		i, name := i, name
		g.Go(func() error {
			t, err := readOne(gctx, cat.Source(name), opt.Contracts[name], csvOpt)
			if errors.Is(err, datasource.ErrNotFound) {
				log.Warn("source table not found, skipping", "table", name, "err", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := table.NewStore()
	for i, name := range opt.Tables {
		t := results[i]
		if t == nil {
			continue
		}
		store.Put(name, t)
		metrics.RecordRows(opt.Run, name, "extracted", int64(t.Len()))
		log.Info("extracted", "table", name, "rows", t.Len(), "columns", len(t.Columns))
	}
	return store, nil
}

func readOne(ctx context.Context, src datasource.Source, c schema.Contract, opt csvparser.Options) (*table.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return csvparser.Read(ctx, rc, c, opt)
}
