// Package mysql implements a MySQL-backed storage.Repository with batched
// multi-row INSERTs inside one transaction per table.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/ddl"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/go-sql-driver/mysql"
)

// DefaultBatchSize bounds rows per INSERT statement.
const DefaultBatchSize = 500

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string
	Schema    string // database name; created on demand when set
	BatchSize int
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// New wraps an already open handle.
func New(db *sql.DB, cfg Config) *Repository {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Repository{db: db, cfg: cfg}
}

// NewRepository validates the DSN, opens a pool and returns a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql ping: %w", err)
	}
	return New(db, cfg), func() { _ = db.Close() }, nil
}

// ReplaceTable drops and recreates the table, then inserts rows in batches.
func (r *Repository) ReplaceTable(ctx context.Context, t *table.Table) (int64, error) {
	def := ddl.FromTable(t, r.cfg.Schema, ddl.MySQL)
	create, err := ddl.MySQL.CreateTable(def)
	if err != nil {
		return 0, err
	}

	// MySQL DDL commits implicitly, so it runs before the insert transaction.
	stmts := []string{ddl.MySQL.DropTable(def.FQN), create}
	if r.cfg.Schema != "" {
		stmts = append([]string{"CREATE DATABASE IF NOT EXISTS " + ddl.MySQL.Quote(r.cfg.Schema)}, stmts...)
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("mysql: ddl %s: %w", def.FQN, err)
		}
	}
	if len(t.Rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		ddl.MySQL.QuoteFQN(def.FQN), strings.Join(ddl.MySQL.QuoteAll(t.Columns), ", "))
	tuple := "(" + ddl.Placeholders(len(t.Columns)) + ")"

	var inserted int64
	for start := 0; start < len(t.Rows); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(t.Rows))
		batch := t.Rows[start:end]

		args := make([]any, 0, len(batch)*len(t.Columns))
		tuples := make([]string, len(batch))
		for i, row := range batch {
			tuples[i] = tuple
			args = append(args, storage.Args(row, false)...)
		}
		res, err := tx.ExecContext(ctx, head+strings.Join(tuples, ", "), args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert %s rows %d-%d: %w", def.FQN, start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return inserted, nil
}

// Count returns the row count of name, qualified with the configured schema.
func (r *Repository) Count(ctx context.Context, name string) (int64, error) {
	fqn := storage.Qualify(r.cfg.Schema, name)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ddl.MySQL.QuoteFQN(fqn)).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysql: count %s: %w", fqn, err)
	}
	return n, nil
}
