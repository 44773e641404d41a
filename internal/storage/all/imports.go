// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects runs each backend's init, which registers
// the "sqlite", "postgres", "mssql" and "mysql" kinds:
//
//	import _ "github.com/bendy2509/etl-projet-1/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "olist.db"})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "github.com/bendy2509/etl-projet-1/internal/storage/mssql"
	_ "github.com/bendy2509/etl-projet-1/internal/storage/mysql"
	_ "github.com/bendy2509/etl-projet-1/internal/storage/postgres"
	_ "github.com/bendy2509/etl-projet-1/internal/storage/sqlite"
)
