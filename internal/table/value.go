// Package table holds the in-memory tabular model shared by every pipeline
// stage: typed cell values, tables with a fixed column set, and the Store
// mapping table names to tables.
package table

import (
	"math"
	"strconv"
	"time"
)

// Kind enumerates the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "timestamp"
	default:
		return "null"
	}
}

// TimeLayout is the canonical text rendering of timestamp cells.
const TimeLayout = "2006-01-02 15:04:05"

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	n    float64
	t    time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Num wraps a number. NaN is treated as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, n: f}
}

// Timestamp wraps a point in time. The zero time is treated as missing.
func Timestamp(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, t: t}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string payload when v is a string.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindString }

// Float returns the numeric payload when v is a number.
func (v Value) Float() (float64, bool) { return v.n, v.kind == KindNumber }

// Time returns the timestamp payload when v is a timestamp.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTime }

// Equal reports cell equality for duplicate detection. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Key renders v as a join/grouping key. ok is false for nulls, which never
// match anything.
func (v Value) Key() (key string, ok bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), true
	case KindTime:
		return v.t.UTC().Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

// String renders v for reports and flat files. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindTime:
		return v.t.Format(TimeLayout)
	default:
		return ""
	}
}

// Any returns the payload as a driver-friendly value: nil, string, float64
// or time.Time.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindTime:
		return v.t
	default:
		return nil
	}
}
