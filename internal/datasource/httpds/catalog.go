package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/datasource"
)

// Catalog resolves tables to <base>/<table>.csv.
type Catalog struct {
	client *Client
	base   string
}

// NewCatalog returns a catalog rooted at base (http or https URL).
func NewCatalog(client *Client, base string) (*Catalog, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("httpds: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpds: base url %q: scheme must be http or https", base)
	}
	return &Catalog{client: client, base: strings.TrimRight(base, "/")}, nil
}

// Source returns the remote source for table.
func (c *Catalog) Source(table string) datasource.Source {
	return &remote{client: c.client, url: c.base + "/" + url.PathEscape(table) + ".csv"}
}

type remote struct {
	client *Client
	url    string
}

func (r *remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: %w", r.url, datasource.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", r.url, resp.StatusCode)
	}
	return resp.Body, nil
}
