// Package report renders tables and run summaries for the console with
// go-pretty.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/table"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Renderer writes reports to W, as box tables or, with Markdown set, as
// markdown tables.
type Renderer struct {
	W        io.Writer
	Markdown bool
}

func (r Renderer) writer(title string) pretty.Writer {
	tw := pretty.NewWriter()
	tw.SetOutputMirror(r.W)
	tw.SetStyle(pretty.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

func (r Renderer) render(tw pretty.Writer) {
	if r.Markdown {
		tw.RenderMarkdown()
		return
	}
	tw.Render()
}

// Preview prints the first n rows of t.
func (r Renderer) Preview(t *table.Table, n int) {
	if t.Len() == 0 {
		_, _ = fmt.Fprintf(r.W, "%s: (0 rows)\n", t.Name)
		return
	}
	tw := r.writer(fmt.Sprintf("%s (first %d of %d rows)", t.Name, min(n, t.Len()), t.Len()))
	header := make(pretty.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for i := 0; i < t.Len() && i < n; i++ {
		row := make(pretty.Row, len(t.Columns))
		for j, v := range t.Rows[i] {
			row[j] = v.String()
		}
		tw.AppendRow(row)
	}
	r.render(tw)
}

// ColumnProfile describes one column for inspection.
type ColumnProfile struct {
	Column  string
	Kind    string
	Missing int
}

// Profile returns, per column, the kinds present among non-null cells and
// the number of nulls.
func Profile(t *table.Table) []ColumnProfile {
	out := make([]ColumnProfile, len(t.Columns))
	for i, mc := range t.MissingCounts() {
		seen := map[table.Kind]bool{}
		for _, r := range t.Rows {
			if k := r[i].Kind(); k != table.KindNull {
				seen[k] = true
			}
		}
		var kinds []string
		for _, k := range []table.Kind{table.KindString, table.KindNumber, table.KindTime} {
			if seen[k] {
				kinds = append(kinds, k.String())
			}
		}
		kind := strings.Join(kinds, "|")
		if kind == "" {
			kind = table.KindNull.String()
		}
		out[i] = ColumnProfile{Column: mc.Column, Kind: kind, Missing: mc.Count}
	}
	return out
}

// Inspect prints the shape, column profile and first rows of t.
func (r Renderer) Inspect(t *table.Table, head int) {
	_, _ = fmt.Fprintf(r.W, "\n%s: %d rows x %d columns\n", t.Name, t.Len(), len(t.Columns))

	tw := r.writer("")
	tw.AppendHeader(pretty.Row{"column", "kind", "missing", "missing %"})
	for _, p := range Profile(t) {
		pct := 0.0
		if t.Len() > 0 {
			pct = float64(p.Missing) / float64(t.Len()) * 100
		}
		tw.AppendRow(pretty.Row{p.Column, p.Kind, p.Missing, fmt.Sprintf("%.2f", pct)})
	}
	r.render(tw)
	r.Preview(t, head)
}

// Summary prints the synthesis of a run: per table row and column counts
// with the first column names, then the grand total of rows.
func (r Renderer) Summary(s *table.Store, at time.Time) {
	tw := r.writer("Synthesis " + at.Format(table.TimeLayout))
	tw.AppendHeader(pretty.Row{"table", "rows", "columns", "first columns"})
	total := 0
	for _, name := range s.Names() {
		t, _ := s.Get(name)
		first := t.Columns
		if len(first) > 5 {
			first = first[:5]
		}
		tw.AppendRow(pretty.Row{name, t.Len(), len(t.Columns), strings.Join(first, ", ")})
		total += t.Len()
	}
	tw.AppendFooter(pretty.Row{"total", total, "", ""})
	r.render(tw)
}
