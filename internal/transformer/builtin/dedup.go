package builtin

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/bendy2509/etl-projet-1/internal/metrics"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/zeebo/xxh3"
)

// Dedup removes exact duplicate rows from every table, keeping the first
// occurrence. Two nulls in the same column compare equal.
type Dedup struct {
	RunID string
	Log   *slog.Logger
}

func (d Dedup) Name() string { return "dedup" }

func (d Dedup) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	log := logOrDefault(d.Log)
	for _, name := range s.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, _ := s.Get(name)
		out, removed := DropDuplicates(t)
		if removed == 0 {
			log.Info("no duplicates", "table", name, "rows", t.Len())
			continue
		}
		s.Put(name, out)
		metrics.RecordRows(d.RunID, name, "duplicates", int64(removed))
		log.Info("duplicates removed",
			"table", name,
			"removed", removed,
			"pct", Percent(removed, t.Len()),
			"rows", out.Len(),
		)
	}
	return s, nil
}

// DropDuplicates returns t without its repeated rows and the number of rows
// removed. Survivors keep their relative order. When nothing is removed t
// itself is returned.
func DropDuplicates(t *table.Table) (*table.Table, int) {
	seen := make(map[uint64][]int, t.Len())
	keep := make([]bool, t.Len())
	var buf []byte
	removed := 0
	for i, r := range t.Rows {
		buf = fingerprint(buf[:0], r)
		h := xxh3.Hash(buf)
		dup := false
		for _, j := range seen[h] {
			if table.RowsEqual(t.Rows[j], r) {
				dup = true
				break
			}
		}
		if dup {
			removed++
			continue
		}
		seen[h] = append(seen[h], i)
		keep[i] = true
	}
	if removed == 0 {
		return t, 0
	}
	out := table.New(t.Name, t.Columns)
	out.Rows = make([][]table.Value, 0, t.Len()-removed)
	for i, r := range t.Rows {
		if keep[i] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, removed
}

// fingerprint appends a canonical encoding of row to buf. Rows that are
// Equal always encode identically.
func fingerprint(buf []byte, row []table.Value) []byte {
	for _, v := range row {
		buf = append(buf, byte(v.Kind()))
		switch v.Kind() {
		case table.KindString:
			s, _ := v.Text()
			buf = binary.AppendUvarint(buf, uint64(len(s)))
			buf = append(buf, s...)
		case table.KindNumber:
			f, _ := v.Float()
			if f == 0 {
				f = 0 // folds -0
			}
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		case table.KindTime:
			tm, _ := v.Time()
			buf = binary.LittleEndian.AppendUint64(buf, uint64(tm.UnixNano()))
		}
	}
	return buf
}

// Percent returns part as a percentage of whole, 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
