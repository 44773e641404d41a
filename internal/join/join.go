// Package join implements the equi-join used to assemble fact tables. A
// join reports how the key space partitioned (matched, left-only,
// right-only) and flags fan-out caused by duplicate right-side keys, so a
// cardinality change is never silent.
package join

import (
	"fmt"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/table"
)

// How selects which unmatched rows are kept.
type How string

const (
	Inner How = "inner"
	Left  How = "left"
	Right How = "right"
	Outer How = "outer"
)

// ParseHow validates a join type name. Empty means Left.
func ParseHow(s string) (How, error) {
	switch h := How(strings.ToLower(strings.TrimSpace(s))); h {
	case "":
		return Left, nil
	case Inner, Left, Right, Outer:
		return h, nil
	default:
		return "", fmt.Errorf("join: unknown join type %q", s)
	}
}

// DefaultSuffixes disambiguate overlapping column names.
var DefaultSuffixes = [2]string{"_x", "_y"}

// Spec describes one join.
type Spec struct {
	LeftKey  string
	RightKey string
	How      How
	// Suffixes for overlapping non-key columns; zero value means
	// DefaultSuffixes.
	Suffixes [2]string
}

// Origin tells which side(s) an output row came from.
type Origin uint8

const (
	Both Origin = iota
	LeftOnly
	RightOnly
)

func (o Origin) String() string {
	switch o {
	case LeftOnly:
		return "left_only"
	case RightOnly:
		return "right_only"
	default:
		return "both"
	}
}

// Partition counts the key partition of a join. LeftOnly and RightOnly
// count input rows without a partner whatever the join type, so they
// describe the data rather than the output.
type Partition struct {
	// Matched is the number of output rows built from both sides.
	Matched int
	// LeftOnly is the number of left rows with no right partner.
	LeftOnly int
	// RightOnly is the number of right rows with no left partner.
	RightOnly int
	// FanOut is the number of extra rows produced because a left row
	// matched more than one right row.
	FanOut int
	// DuplicateKeys is the number of distinct right keys occurring more
	// than once.
	DuplicateKeys int
}

// Result is the output of Join. Origins is aligned with Table.Rows.
type Result struct {
	Table     *table.Table
	Partition Partition
	Origins   []Origin
}

// Join joins left and right on equal keys. Null keys never match. Output
// rows follow left order (each left row followed by its matches in right
// order); right-only rows, when kept, come last in right order. When both
// keys share a name the key column appears once and is filled from the
// right side for right-only rows; otherwise both key columns are kept.
func Join(left, right *table.Table, spec Spec) (*Result, error) {
	how, err := ParseHow(string(spec.How))
	if err != nil {
		return nil, err
	}
	lk, ok := left.Col(spec.LeftKey)
	if !ok {
		return nil, fmt.Errorf("join %s: left key: %w: %s", left.Name, table.ErrColumnNotFound, spec.LeftKey)
	}
	rk, ok := right.Col(spec.RightKey)
	if !ok {
		return nil, fmt.Errorf("join %s: right key: %w: %s", right.Name, table.ErrColumnNotFound, spec.RightKey)
	}
	sfx := spec.Suffixes
	if sfx == ([2]string{}) {
		sfx = DefaultSuffixes
	}
	shared := spec.LeftKey == spec.RightKey

	var p Partition
	index := make(map[string][]int, right.Len())
	for j, r := range right.Rows {
		if k, ok := r[rk].Key(); ok {
			index[k] = append(index[k], j)
		}
	}
	for _, js := range index {
		if len(js) > 1 {
			p.DuplicateKeys++
		}
	}

	rightCols := make([]int, 0, len(right.Columns))
	for j := range right.Columns {
		if shared && j == rk {
			continue
		}
		rightCols = append(rightCols, j)
	}
	cols := outputColumns(left, right, rightCols, sfx)
	out := table.New(left.Name, cols)
	nl := len(left.Columns)

	var origins []Origin
	emit := func(lr, rr []table.Value, o Origin) {
		row := make([]table.Value, len(cols))
		if lr != nil {
			copy(row, lr)
		} else if shared {
			row[lk] = rr[rk]
		}
		if rr != nil {
			for i, j := range rightCols {
				row[nl+i] = rr[j]
			}
		}
		out.Rows = append(out.Rows, row)
		origins = append(origins, o)
	}

	matchedRight := make([]bool, right.Len())
	for _, lr := range left.Rows {
		var matches []int
		if k, ok := lr[lk].Key(); ok {
			matches = index[k]
		}
		if len(matches) == 0 {
			p.LeftOnly++
			if how == Left || how == Outer {
				emit(lr, nil, LeftOnly)
			}
			continue
		}
		p.FanOut += len(matches) - 1
		for _, j := range matches {
			matchedRight[j] = true
			p.Matched++
			emit(lr, right.Rows[j], Both)
		}
	}
	for j, rr := range right.Rows {
		if matchedRight[j] {
			continue
		}
		p.RightOnly++
		if how == Right || how == Outer {
			emit(nil, rr, RightOnly)
		}
	}

	return &Result{Table: out, Partition: p, Origins: origins}, nil
}

func outputColumns(left, right *table.Table, rightCols []int, sfx [2]string) []string {
	rightNames := make(map[string]struct{}, len(rightCols))
	for _, j := range rightCols {
		rightNames[right.Columns[j]] = struct{}{}
	}
	overlap := make(map[string]struct{})
	for _, c := range left.Columns {
		if _, ok := rightNames[c]; ok {
			overlap[c] = struct{}{}
		}
	}

	cols := make([]string, 0, len(left.Columns)+len(rightCols))
	for _, c := range left.Columns {
		if _, ok := overlap[c]; ok {
			c += sfx[0]
		}
		cols = append(cols, c)
	}
	for _, j := range rightCols {
		c := right.Columns[j]
		if _, ok := overlap[c]; ok {
			c += sfx[1]
		}
		cols = append(cols, c)
	}
	return cols
}

// FirstByKey keeps the first row of each distinct non-null key, in input
// order, and returns how many rows were removed (null keys included).
func FirstByKey(t *table.Table, key string) (*table.Table, int, error) {
	c, ok := t.Col(key)
	if !ok {
		return nil, 0, fmt.Errorf("join %s: %w: %s", t.Name, table.ErrColumnNotFound, key)
	}
	seen := make(map[string]struct{}, t.Len())
	out := t.Filter(func(r []table.Value) bool {
		k, ok := r[c].Key()
		if !ok {
			return false
		}
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return out, t.Len() - out.Len(), nil
}
