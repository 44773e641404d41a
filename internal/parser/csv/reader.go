// Package csv reads one delimited export file into a typed table.Table,
// typing each cell from the table's schema contract. Empty cells and NA
// markers become nulls; date columns stay text until the date normalizer
// runs.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options configures how a file is decoded. The zero value reads
// comma-separated UTF-8 with whitespace trimming off.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from every cell.
	TrimSpace bool

	// Encoding names the source charset: "" or "utf-8", "windows-1252",
	// "iso-8859-1".
	Encoding string

	// NormalizeUnicode rewrites text cells to NFC so that visually equal
	// labels compare equal during dedup and joins.
	NormalizeUnicode bool

	// Log receives one warning per numeric column holding unreadable
	// numbers. Nil means slog.Default.
	Log *slog.Logger
}

// NAValues are the cell texts read as null in every column, as dataframe
// readers do by default.
var NAValues = []string{
	"#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// IndexColumns are header names of a leading row-index column written by
// dataframe exports; such a column is dropped.
var IndexColumns = []string{"index", "", "Unnamed: 0"}

// Read parses r into a table named after the contract. The header row is
// mandatory; a leading index column is dropped. Required contract columns
// missing from the header are a fatal error, as is a ragged row. A cell
// that cannot be read as a number in a numeric column becomes null and is
// counted per column.
func Read(ctx context.Context, r io.Reader, c schema.Contract, opt Options) (*table.Table, error) {
	dec, err := decoder(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	cr.ReuseRecord = true
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: %s: empty file", c.Name)
		}
		return nil, fmt.Errorf("csv: %s: read header: %w", c.Name, err)
	}
	header = StripHeaderBOM(append([]string(nil), header...))

	skip := -1
	if len(header) > 0 && isIndexColumn(header[0]) {
		skip = 0
		header = header[1:]
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := c.Check(header); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	types := make([]string, len(header))
	for i, h := range header {
		types[i] = c.TypeOf(h)
	}

	invalid := make([]int, len(header))
	t := table.New(c.Name, header)
	line := 1
	for {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: %s: line %d: %w", c.Name, line, err)
		}
		if skip == 0 {
			rec = rec[1:]
		}

		row := make([]table.Value, len(header))
		for i, raw := range rec {
			v, ok := cell(raw, types[i], opt)
			if !ok {
				invalid[i]++
			}
			row[i] = v
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
	}

	log := opt.Log
	if log == nil {
		log = slog.Default()
	}
	for i, n := range invalid {
		if n > 0 {
			log.Warn("unreadable numbers set to null", "table", c.Name, "column", header[i], "cells", n)
		}
	}
	return t, nil
}

// cell types one raw cell. ok is false only for a numeric cell that is
// not a number; its value is then null.
func cell(raw, typ string, opt Options) (v table.Value, ok bool) {
	if opt.TrimSpace {
		raw = strings.TrimSpace(raw)
	}
	if raw == "" || isNA(strings.TrimSpace(raw)) {
		return table.Null(), true
	}
	switch typ {
	case schema.TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return table.Null(), false
		}
		return table.Num(f), true
	default:
		if opt.NormalizeUnicode {
			raw = norm.NFC.String(raw)
		}
		return table.Str(raw), true
	}
}

func isNA(s string) bool {
	for _, na := range NAValues {
		if s == na {
			return true
		}
	}
	return false
}

func isIndexColumn(h string) bool {
	h = strings.TrimSpace(h)
	for _, ic := range IndexColumns {
		if h == ic {
			return true
		}
	}
	return false
}

func decoder(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", enc)
	}
}
