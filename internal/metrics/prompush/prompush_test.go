package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bendy2509/etl-projet-1/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func readCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func readSummary(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("summary does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write: %v", err)
	}
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway", jobName: "etl", wantErr: true},
		{name: "default job name", gatewayURL: "http://pushgateway:9091", wantJobName: "etl"},
		{name: "explicit job name", jobName: "olist", gatewayURL: "http://pushgateway:9091", wantJobName: "olist"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := NewBackend(tt.jobName, "run-1", tt.gatewayURL)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
		})
	}
}

func TestBackendRecordsPipelineMetrics(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("etl", "run-1", "http://unused")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"run": "run-1", "step": "dedup", "status": "success"})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"run": "run-1", "step": "dedup", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 42, metrics.Labels{"run": "run-1", "table": "orders", "kind": "extracted"})
	b.IncCounter("unknown_metric", 5, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "dedup", "status": "success"})
	b.ObserveHistogram("unknown_metric", 9, nil)

	if got := readCounter(t, b.stepCounter.WithLabelValues("dedup", "success")); got != 2 {
		t.Fatalf("step counter = %v, want 2", got)
	}
	if got := readCounter(t, b.recordCounter.WithLabelValues("orders", "extracted")); got != 42 {
		t.Fatalf("record counter = %v, want 42", got)
	}
	if n, sum := readSummary(t, b.stepDuration, "dedup", "success"); n != 1 || sum != 0.25 {
		t.Fatalf("summary count=%d sum=%v", n, sum)
	}
}

func TestIncCounterOnZeroBackend(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "x", "status": "success"})
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
}

func TestFlushPushesGroupedByRun(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		paths  []string
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("olist", "run-42", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 {
		t.Fatalf("pushes = %d, want 1", len(paths))
	}
	if !strings.Contains(paths[0], "/job/olist") || !strings.Contains(paths[0], "/run/run-42") {
		t.Fatalf("push path = %q", paths[0])
	}
	if len(bodies[0]) == 0 {
		t.Fatalf("empty push body")
	}
}

func TestFlushReportsGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("olist", "", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Fatalf("expected push error")
	}
}
