// Package file implements the local filesystem catalog: one CSV file per
// table under a root directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bendy2509/etl-projet-1/internal/datasource"
)

// Local opens a single file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the file path the source opens.
func (l *Local) Path() string { return l.path }

// Open opens the file for reading. A pre-canceled context short-circuits
// without touching the filesystem. A missing file satisfies both
// errors.Is(err, datasource.ErrNotFound) and errors.Is(err, fs.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w: %w", l.path, datasource.ErrNotFound, err)
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Dir is a catalog reading <root>/<table><ext>.
type Dir struct {
	root string
	ext  string
}

// NewDir returns a catalog over root using the ".csv" extension.
func NewDir(root string) *Dir { return &Dir{root: root, ext: ".csv"} }

// Source returns the local source for table.
func (d *Dir) Source(table string) datasource.Source {
	return NewLocal(filepath.Join(d.root, filepath.Base(table)+d.ext))
}
