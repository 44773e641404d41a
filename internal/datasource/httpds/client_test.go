package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/datasource"
)

func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})
	if c.httpClient.Timeout <= 0 {
		t.Fatalf("expected non-zero timeout, got %v", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 {
		t.Fatalf("expected maxRetries=0, got %d", c.maxRetries)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.httpClient.Transport)
	}
	if !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected InsecureSkipVerify=true when configured")
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		failures   int32
		maxRetries int
		wantHits   int32
		wantErr    bool
	}{
		{name: "success first try", failures: 0, maxRetries: 3, wantHits: 1},
		{name: "recovers after two 503", failures: 2, maxRetries: 3, wantHits: 3},
		{name: "gives up after retries", failures: 10, maxRetries: 2, wantHits: 3, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("X-Token") != "secret" {
					t.Errorf("missing configured header")
				}
				if atomic.AddInt32(&hits, 1) <= tt.failures {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_, _ = io.WriteString(w, "ok")
			}))
			defer srv.Close()

			c := NewClient(Config{MaxRetries: tt.maxRetries, Headers: http.Header{"X-Token": {"secret"}}})
			c.after = instant

			resp, err := c.Get(context.Background(), srv.URL)
			if tt.wantErr {
				if err == nil {
					resp.Body.Close()
					t.Fatalf("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				resp.Body.Close()
			}
			if got := atomic.LoadInt32(&hits); got != tt.wantHits {
				t.Fatalf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestGetNonRetryableStatusReturnsResponse(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3})
	c.after = instant
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || hits != 1 {
		t.Fatalf("status=%d hits=%d", resp.StatusCode, hits)
	}
}

func TestGetHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{}).Get(ctx, "http://127.0.0.1:1/x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
		{100, time.Second},
	}
	for _, tt := range tests {
		if got := backoff(100*time.Millisecond, tt.attempt, time.Second); got != tt.want {
			t.Fatalf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCatalogOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/export/orders.csv":
			_, _ = io.WriteString(w, "order_id\nA\n")
		case "/export/broken.csv":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cat, err := NewCatalog(NewClient(Config{}), srv.URL+"/export/")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	rc, err := cat.Source("orders").Open(context.Background())
	if err != nil {
		t.Fatalf("Open orders: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "order_id\nA\n" {
		t.Fatalf("body = %q", b)
	}

	if _, err := cat.Source("geoloc").Open(context.Background()); !errors.Is(err, datasource.ErrNotFound) {
		t.Fatalf("missing table err = %v, want ErrNotFound", err)
	}
	if _, err := cat.Source("broken").Open(context.Background()); err == nil || errors.Is(err, datasource.ErrNotFound) {
		t.Fatalf("forbidden err = %v, want a non-NotFound error", err)
	}
}

func TestNewCatalogRejectsScheme(t *testing.T) {
	t.Parallel()

	if _, err := NewCatalog(NewClient(Config{}), "ftp://host/x"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
