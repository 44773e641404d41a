// Package schema describes the expected shape of each source table: which
// columns exist, what semantic type they carry, and which of them the
// pipeline cannot run without. Contracts are checked once, at load time.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when a required column is absent from a
// source table.
var ErrMissingColumn = errors.New("missing required column")

// Semantic column types.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeDate   = "date"
)

// Field describes one column.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" | "number" | "date"
	Required bool   `json:"required,omitempty"`
}

// Contract is the descriptor of one table.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// TypeOf returns the declared type of a column, defaulting to text for
// undeclared columns.
func (c Contract) TypeOf(column string) string {
	for _, f := range c.Fields {
		if f.Name == column {
			return f.Type
		}
	}
	return TypeText
}

// DateColumns returns the columns declared as dates, in declaration order.
func (c Contract) DateColumns() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Type == TypeDate {
			out = append(out, f.Name)
		}
	}
	return out
}

// Check verifies that every required field is present in header. Optional
// fields may be absent; unknown extra columns are accepted and read as text.
func (c Contract) Check(header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if _, ok := have[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", c.Name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}
