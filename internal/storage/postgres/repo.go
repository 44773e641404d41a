// Package postgres implements a Postgres repository using pgx v5. Each table
// is dropped, recreated and loaded with COPY inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/ddl"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN    string // connection string for pgxpool
	Schema string // optional schema, created on demand
}

// pool is the subset of *pgxpool.Pool the repository uses.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: p, cfg: cfg}, p.Close, nil
}

// ReplaceTable drops and recreates the table, then COPYs every row.
func (r *Repository) ReplaceTable(ctx context.Context, t *table.Table) (int64, error) {
	def := ddl.FromTable(t, r.cfg.Schema, ddl.Postgres)
	create, err := ddl.Postgres.CreateTable(def)
	if err != nil {
		return 0, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmts := []string{ddl.Postgres.DropTable(def.FQN), create}
	if r.cfg.Schema != "" {
		stmts = append([]string{"CREATE SCHEMA IF NOT EXISTS " + ddl.Postgres.Quote(r.cfg.Schema)}, stmts...)
	}
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return 0, fmt.Errorf("postgres: %s: %w", firstWords(s), err)
		}
	}

	rows := t.Rows
	n, err := tx.CopyFrom(ctx, splitFQN(def.FQN), t.Columns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return storage.Args(rows[i], false), nil
	}))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("postgres: copy into %s: %s (%s)", def.FQN, pgErr.Detail, pgErr.SQLState())
		}
		return 0, fmt.Errorf("postgres: copy into %s: %w", def.FQN, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// Count returns the row count of name, qualified with the configured schema.
func (r *Repository) Count(ctx context.Context, name string) (int64, error) {
	fqn := storage.Qualify(r.cfg.Schema, name)
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+ddl.Postgres.QuoteFQN(fqn)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", fqn, err)
	}
	return n, nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

func firstWords(stmt string) string {
	f := strings.Fields(stmt)
	if len(f) > 2 {
		f = f[:2]
	}
	return strings.ToLower(strings.Join(f, " "))
}
