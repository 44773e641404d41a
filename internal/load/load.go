// Package load writes the derived tables of a run to flat files and to a
// relational backend.
package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bendy2509/etl-projet-1/internal/aggregate"
	"github.com/bendy2509/etl-projet-1/internal/fact"
	"github.com/bendy2509/etl-projet-1/internal/metrics"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"
)

// DerivedTables are the tables a run publishes, in write order.
var DerivedTables = []string{
	fact.OrderItems,
	fact.CustomersGeoloc,
	aggregate.MonthlyRevenue,
	aggregate.TopCategories,
	aggregate.DeliveryMetrics,
	aggregate.ReviewsMonthly,
}

// Result describes one written table.
type Result struct {
	Table   string
	Rows    int64
	Target  string
	Skipped bool
}

// Loader carries the run id and logger shared by both sinks.
type Loader struct {
	RunID string
	Log   *slog.Logger
}

func (l Loader) log() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

// WriteCSV writes each named table to dir/<name>.csv with a header row.
// Timestamps use table.TimeLayout and nulls are empty cells. Files are
// written to a temporary name and renamed, so a failed run never leaves a
// truncated file behind. Tables absent from s are skipped with a warning.
func (l Loader) WriteCSV(ctx context.Context, s *table.Store, dir string, names []string) ([]Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("load: mkdir %s: %w", dir, err)
	}
	out := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		t, ok := s.Get(name)
		if !ok {
			l.log().Warn("table not produced; skipping", "table", name, "sink", "csv")
			out = append(out, Result{Table: name, Skipped: true})
			continue
		}
		path := filepath.Join(dir, name+".csv")
		if err := writeFile(path, t); err != nil {
			return out, fmt.Errorf("load: %s: %w", name, err)
		}
		n := int64(t.Len())
		metrics.RecordRows(l.RunID, name, "written", n)
		l.log().Info("wrote csv", "table", name, "rows", n, "path", path)
		out = append(out, Result{Table: name, Rows: n, Target: path})
	}
	return out, nil
}

func writeFile(path string, t *table.Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteTable(tmp, t); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteTable renders t as CSV: header then one line per row.
func WriteTable(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRelational replaces each named table in repo and reads the row count
// back. A count that differs from the rows written is an error.
func (l Loader) WriteRelational(ctx context.Context, repo storage.Repository, s *table.Store, names []string) ([]Result, error) {
	out := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		t, ok := s.Get(name)
		if !ok {
			l.log().Warn("table not produced; skipping", "table", name, "sink", "db")
			out = append(out, Result{Table: name, Skipped: true})
			continue
		}
		written, err := repo.ReplaceTable(ctx, t)
		if err != nil {
			return out, fmt.Errorf("load: %s: %w", name, err)
		}
		stored, err := repo.Count(ctx, name)
		if err != nil {
			return out, fmt.Errorf("load: %s: read back: %w", name, err)
		}
		if stored != int64(t.Len()) {
			return out, fmt.Errorf("load: %s: stored %d rows, want %d", name, stored, t.Len())
		}
		metrics.RecordRows(l.RunID, name, "loaded", stored)
		l.log().Info("loaded table", "table", name, "written", written, "stored", stored)
		out = append(out, Result{Table: name, Rows: stored, Target: name})
	}
	return out, nil
}
