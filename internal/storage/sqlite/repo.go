package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/ddl"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"

	_ "modernc.org/sqlite"
)

// Repository writes tables into a SQLite database. SQLite has no bulk-load
// API like Postgres COPY; rows go through one prepared INSERT inside a
// single transaction per table. Timestamps are stored as TEXT in
// table.TimeLayout.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Open opens a SQLite handle limited to one connection, so that ":memory:"
// databases are shared by every statement.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an already open handle.
func New(db *sql.DB, cfg Config) *Repository {
	return &Repository{db: db, cfg: cfg}
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return New(db, cfg), func() { _ = db.Close() }, nil
}

// ReplaceTable drops and recreates t.Name, then inserts every row.
func (r *Repository) ReplaceTable(ctx context.Context, t *table.Table) (int64, error) {
	def := ddl.FromTable(t, "", ddl.SQLite)
	create, err := ddl.SQLite.CreateTable(def)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	if _, err := tx.ExecContext(ctx, ddl.SQLite.DropTable(def.FQN)); err != nil {
		rollback()
		return 0, fmt.Errorf("sqlite: drop %s: %w", def.FQN, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		rollback()
		return 0, fmt.Errorf("sqlite: create %s: %w", def.FQN, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.SQLite.QuoteFQN(def.FQN),
		strings.Join(ddl.SQLite.QuoteAll(t.Columns), ", "),
		ddl.Placeholders(len(t.Columns)),
	))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, storage.Args(row, true)...); err != nil {
			rollback()
			return 0, fmt.Errorf("sqlite: insert %s row %d: %w", def.FQN, i, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Count returns the row count of name.
func (r *Repository) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + ddl.SQLite.QuoteFQN(name)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", name, err)
	}
	return n, nil
}
