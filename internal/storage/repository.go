// Package storage defines the backend-agnostic relational sink for pipeline
// tables and a registry of backends. Backends register themselves in init;
// import internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bendy2509/etl-projet-1/internal/table"
)

// Repository writes whole tables to a relational database.
type Repository interface {
	// ReplaceTable drops t.Name if it exists, recreates it from the data's
	// inferred column kinds and bulk-loads every row. It returns the number
	// of rows written.
	ReplaceTable(ctx context.Context, t *table.Table) (int64, error)

	// Count returns the number of rows currently stored in name.
	Count(ctx context.Context, name string) (int64, error)

	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string

	// Schema optionally qualifies every table name (e.g. "olist").
	Schema string

	// BatchSize bounds rows per INSERT statement for backends without a
	// bulk-load API. Zero means the backend default.
	BatchSize int
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage: %s: DSN must not be empty", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Args converts a row to driver arguments. Nulls become nil. When
// timeText is set, timestamps are rendered with table.TimeLayout for
// backends that store them as text.
func Args(row []table.Value, timeText bool) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if ts, ok := v.Time(); ok && timeText {
			out[i] = ts.UTC().Format(table.TimeLayout)
			continue
		}
		out[i] = v.Any()
	}
	return out
}

// Qualify prefixes name with schema when one is configured.
func Qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
