// Package datasource abstracts where the raw export files come from. A
// Catalog resolves a table name to a Source; the extractor only ever sees
// the io.ReadCloser a Source opens.
package datasource

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Source.Open when the catalog holds no file for
// the requested table. Extraction treats it as an absent table rather than
// a fatal error.
var ErrNotFound = errors.New("datasource: not found")

// Source opens one raw file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Catalog maps table names to sources.
type Catalog interface {
	Source(table string) Source
}
