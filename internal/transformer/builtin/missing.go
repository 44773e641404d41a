package builtin

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/bendy2509/etl-projet-1/internal/metrics"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"
)

// DefaultCategorySentinel replaces a missing product category.
const DefaultCategorySentinel = "Inconnu"

// DefaultReviewScore replaces a missing review score (neutral on 1..5).
const DefaultReviewScore = 3

// MissingPolicy resolves the missing values of one table. Resolve must not
// modify t; it returns t itself or a new table. Needed reports whether
// Resolve would change t; when it is false Resolve must return t as is.
type MissingPolicy interface {
	Needed(t *table.Table) bool
	Resolve(t *table.Table, log *slog.Logger) *table.Table
}

// DefaultPolicies returns the per-table policies of the export.
func DefaultPolicies(categorySentinel string) map[string]MissingPolicy {
	if categorySentinel == "" {
		categorySentinel = DefaultCategorySentinel
	}
	return map[string]MissingPolicy{
		schema.Products:     ProductsPolicy{Sentinel: categorySentinel},
		schema.OrderReviews: FillPolicy{Column: "review_score", Value: table.Num(DefaultReviewScore)},
		// Null delivery/approval timestamps mean "not yet happened".
		schema.Orders: KeepPolicy{},
	}
}

// ResolveMissing applies the policy registered for each table. Tables
// without a policy pass through. A policy only runs when it reports work
// to do, unless Always is set; both modes give the same tables.
type ResolveMissing struct {
	Policies map[string]MissingPolicy
	Always   bool
	RunID    string
	Log      *slog.Logger
}

func (r ResolveMissing) Name() string { return "resolve_missing" }

func (r ResolveMissing) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	log := logOrDefault(r.Log)
	for _, name := range s.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := r.Policies[name]
		if !ok {
			continue
		}
		t, _ := s.Get(name)
		if !r.Always && !p.Needed(t) {
			log.Debug("nothing to resolve", "table", name)
			continue
		}
		out := p.Resolve(t, log.With("table", name))
		if out == t {
			continue
		}
		if dropped := t.Len() - out.Len(); dropped > 0 {
			metrics.RecordRows(r.RunID, name, "dropped", int64(dropped))
		}
		s.Put(name, out)
	}
	return s, nil
}

// KeepPolicy leaves the table untouched.
type KeepPolicy struct{}

func (KeepPolicy) Needed(*table.Table) bool { return false }

func (KeepPolicy) Resolve(t *table.Table, log *slog.Logger) *table.Table {
	log.Debug("missing values kept")
	return t
}

// FillPolicy replaces nulls of one column with a constant.
type FillPolicy struct {
	Column string
	Value  table.Value
}

func (f FillPolicy) Needed(t *table.Table) bool {
	c, ok := t.Col(f.Column)
	return ok && countNulls(t, c) > 0
}

func (f FillPolicy) Resolve(t *table.Table, log *slog.Logger) *table.Table {
	c, ok := t.Col(f.Column)
	if !ok {
		return t
	}
	if n := countNulls(t, c); n > 0 {
		out := t.Clone()
		fillNulls(out, c, f.Value)
		log.Info("missing values filled", "column", f.Column, "filled", n, "pct", Percent(n, t.Len()), "value", f.Value.String())
		return out
	}
	return t
}

// ProductsPolicy fills missing categories with Sentinel, recomputes
// product_name_lenght from the label, zero-fills the numeric metadata and
// finally drops rows that still hold a null.
type ProductsPolicy struct {
	Sentinel string
}

// ProductMetaColumns are zero-filled by ProductsPolicy.
var ProductMetaColumns = []string{
	"product_description_lenght",
	"product_photos_qty",
	"product_width_cm",
	"product_length_cm",
	"product_height_cm",
	"product_weight_g",
}

// Needed is true when any cell is null or product_name_lenght is absent
// or disagrees with the category label.
func (p ProductsPolicy) Needed(t *table.Table) bool {
	if t.HasMissing() {
		return true
	}
	c, ok := t.Col("product_category_name")
	if !ok {
		return false
	}
	lc, ok := t.Col("product_name_lenght")
	if !ok {
		return true
	}
	for _, r := range t.Rows {
		s, ok := r[c].Text()
		if !ok || !r[lc].Equal(table.Num(float64(utf8.RuneCountInString(s)))) {
			return true
		}
	}
	return false
}

func (p ProductsPolicy) Resolve(t *table.Table, log *slog.Logger) *table.Table {
	out := t.Clone()

	if c, ok := out.Col("product_category_name"); ok {
		n := countNulls(out, c)
		fillNulls(out, c, table.Str(p.Sentinel))
		log.Info("missing categories replaced", "filled", n, "pct", Percent(n, t.Len()), "sentinel", p.Sentinel)

		lengths := make([]table.Value, out.Len())
		for i, r := range out.Rows {
			if s, ok := r[c].Text(); ok {
				lengths[i] = table.Num(float64(utf8.RuneCountInString(s)))
			}
		}
		// Cannot fail: one value per row.
		_ = out.SetColumn("product_name_lenght", lengths)
	}

	for _, col := range ProductMetaColumns {
		if c, ok := out.Col(col); ok {
			if n := countNulls(out, c); n > 0 {
				fillNulls(out, c, table.Num(0))
				log.Debug("metadata zero-filled", "column", col, "filled", n)
			}
		}
	}

	complete := out.Filter(func(r []table.Value) bool {
		for _, v := range r {
			if v.IsNull() {
				return false
			}
		}
		return true
	})
	if dropped := out.Len() - complete.Len(); dropped > 0 {
		log.Info("incomplete rows dropped", "dropped", dropped, "pct", Percent(dropped, t.Len()))
	}
	return complete
}

func countNulls(t *table.Table, c int) int {
	n := 0
	for _, r := range t.Rows {
		if r[c].IsNull() {
			n++
		}
	}
	return n
}

func fillNulls(t *table.Table, c int, v table.Value) {
	for _, r := range t.Rows {
		if r[c].IsNull() {
			r[c] = v
		}
	}
}
