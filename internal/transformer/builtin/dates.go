// Package builtin holds the cleaning stages of the transform: date parsing,
// duplicate removal, column pruning and the missing-value policies.
package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/araddon/dateparse"
)

// Date parsing policies.
const (
	DatePolicyStrict     = "strict"
	DatePolicyPermissive = "permissive"
)

// StrictLayout is the export's native timestamp layout (MM/DD/YYYY HH:MM).
const StrictLayout = "01/02/2006 15:04"

// ParseDates rewrites the configured columns of each table to timestamps.
// A value that cannot be parsed becomes null; tables and columns that do
// not exist are skipped.
type ParseDates struct {
	// Columns maps table name to the columns to convert.
	Columns map[string][]string
	// Policy is "strict" (Layout only) or "permissive" (any recognizable
	// date, month first when ambiguous). Empty means permissive.
	Policy string
	// Layout is the strict layout; empty means StrictLayout.
	Layout string
	// DetectByName also converts every column whose name contains "date"
	// or "time".
	DetectByName bool
	// Location is used for values without a zone; nil means UTC.
	Location *time.Location
	Log      *slog.Logger
}

func (p ParseDates) Name() string { return "parse_dates" }

func (p ParseDates) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	parse, err := p.parser()
	if err != nil {
		return nil, err
	}
	log := logOrDefault(p.Log)

	for _, name := range s.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, _ := s.Get(name)
		cols := p.targets(name, t)
		if len(cols) == 0 {
			continue
		}

		out := t.Clone()
		for _, col := range cols {
			c, ok := out.Col(col)
			if !ok {
				log.Debug("date column absent, skipping", "table", name, "column", col)
				continue
			}
			before, valid := 0, 0
			for _, r := range out.Rows {
				if !r[c].IsNull() {
					before++
				}
				r[c] = toTimestamp(r[c], parse)
				if !r[c].IsNull() {
					valid++
				}
			}
			log.Info("dates parsed", "table", name, "column", col, "values", before, "valid", valid, "nulled", before-valid)
		}
		s.Put(name, out)
	}
	return s, nil
}

func (p ParseDates) targets(name string, t *table.Table) []string {
	cols := append([]string(nil), p.Columns[name]...)
	if !p.DetectByName {
		return cols
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	for _, c := range t.Columns {
		if _, ok := seen[c]; ok {
			continue
		}
		lc := strings.ToLower(c)
		if strings.Contains(lc, "date") || strings.Contains(lc, "time") {
			cols = append(cols, c)
		}
	}
	return cols
}

type parseFunc func(string) (time.Time, error)

func (p ParseDates) parser() (parseFunc, error) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	switch strings.ToLower(p.Policy) {
	case DatePolicyStrict:
		layout := p.Layout
		if layout == "" {
			layout = StrictLayout
		}
		return func(s string) (time.Time, error) {
			return time.ParseInLocation(layout, s, loc)
		}, nil
	case "", DatePolicyPermissive:
		return func(s string) (time.Time, error) {
			return dateparse.ParseIn(s, loc)
		}, nil
	default:
		return nil, fmt.Errorf("unknown date policy %q", p.Policy)
	}
}

func toTimestamp(v table.Value, parse parseFunc) table.Value {
	switch v.Kind() {
	case table.KindTime:
		return v
	case table.KindString:
		s, _ := v.Text()
		tm, err := parse(strings.TrimSpace(s))
		if err != nil {
			return table.Null()
		}
		return table.Timestamp(tm)
	default:
		return table.Null()
	}
}

func logOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
