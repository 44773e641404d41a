package builtin

import (
	"context"
	"log/slog"

	"github.com/bendy2509/etl-projet-1/internal/table"
)

// DropColumns removes unused columns, per table. Columns that do not exist
// are ignored.
type DropColumns struct {
	Columns map[string][]string
	Log     *slog.Logger
}

func (d DropColumns) Name() string { return "drop_columns" }

func (d DropColumns) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	log := logOrDefault(d.Log)
	for _, name := range s.Names() {
		cols := d.Columns[name]
		if len(cols) == 0 {
			continue
		}
		t, _ := s.Get(name)
		if !anyPresent(t, cols) {
			log.Debug("no columns to drop", "table", name)
			continue
		}
		out := t.Clone()
		dropped := out.DropColumns(cols...)
		s.Put(name, out)
		log.Info("columns dropped", "table", name, "columns", dropped)
	}
	return s, nil
}

func anyPresent(t *table.Table, cols []string) bool {
	for _, c := range cols {
		if t.Has(c) {
			return true
		}
	}
	return false
}
