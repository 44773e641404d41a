// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Each table is dropped, recreated and bulk
// copied inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bendy2509/etl-projet-1/internal/ddl"
	"github.com/bendy2509/etl-projet-1/internal/storage"
	"github.com/bendy2509/etl-projet-1/internal/table"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN    string
	Schema string // defaults to the login's default schema (usually dbo)
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// New wraps an already open handle.
func New(db *sql.DB, cfg Config) *Repository {
	return &Repository{db: db, cfg: cfg}
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return New(db, cfg), func() { _ = db.Close() }, nil
}

// ReplaceTable drops and recreates the table, then bulk copies every row.
func (r *Repository) ReplaceTable(ctx context.Context, t *table.Table) (int64, error) {
	def := ddl.FromTable(t, r.cfg.Schema, ddl.MSSQL)
	create, err := ddl.MSSQL.CreateTable(def)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmts := []string{ddl.MSSQL.DropTable(def.FQN), create}
	if r.cfg.Schema != "" {
		stmts = append([]string{ensureSchema(r.cfg.Schema)}, stmts...)
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			rollback()
			return 0, fmt.Errorf("ddl %s: %w", def.FQN, err)
		}
	}
	if len(t.Rows) == 0 {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit: %w", err)
		}
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(ddl.MSSQL.QuoteFQN(def.FQN), mssql.BulkOptions{}, t.Columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, storage.Args(row, false)...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Count returns the row count of name, qualified with the configured schema.
func (r *Repository) Count(ctx context.Context, name string) (int64, error) {
	fqn := storage.Qualify(r.cfg.Schema, name)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT_BIG(*) FROM "+ddl.MSSQL.QuoteFQN(fqn)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", fqn, err)
	}
	return n, nil
}

// ensureSchema renders a guarded CREATE SCHEMA; T-SQL requires it to be the
// only statement in its batch, hence EXEC.
func ensureSchema(schema string) string {
	lit := "N'" + escapeLiteral(schema) + "'"
	create := "N'CREATE SCHEMA " + escapeLiteral(ddl.MSSQL.Quote(schema)) + "'"
	return fmt.Sprintf("IF SCHEMA_ID(%s) IS NULL EXEC(%s)", lit, create)
}

func escapeLiteral(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, '\'')
		}
		out = append(out, r)
	}
	return string(out)
}
