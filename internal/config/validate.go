package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding surfaced to users that does not
	// block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "fact.joins.customers"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Known values, shared with the CLI's help text.
var (
	KnownEncodings      = []string{"", "utf-8", "utf8", "windows-1252", "cp1252", "iso-8859-1", "latin1"}
	KnownDatePolicies   = []string{"strict", "permissive"}
	KnownJoinKinds      = []string{"inner", "left", "right", "outer"}
	KnownJoinTables     = []string{"orders", "customers", "sellers", "products"}
	KnownMetricBackends = []string{"", "none", "prompush", "datadog"}
	KnownStorageKinds   = []string{"none", "sqlite", "postgres", "mssql", "mysql"}
)

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateDates(p.Dates)...)
	issues = append(issues, validateFact(p.Fact)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	dir, base := strings.TrimSpace(s.Dir), strings.TrimSpace(s.BaseURL)
	switch {
	case dir == "" && base == "":
		issues = append(issues, Issue{SeverityError, "source", "one of source.dir or source.base_url is required"})
	case dir != "" && base != "":
		issues = append(issues, Issue{SeverityWarning, "source.base_url", "both dir and base_url set; base_url is used"})
	}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "source.base_url", fmt.Sprintf("%q is not an http(s) URL", base)})
		}
	}
	if !contains(KnownEncodings, strings.ToLower(s.Encoding)) {
		issues = append(issues, Issue{SeverityError, "source.encoding", fmt.Sprintf("unsupported encoding %q", s.Encoding)})
	}
	if s.Comma != "" && utf8.RuneCountInString(s.Comma) != 1 {
		issues = append(issues, Issue{SeverityError, "source.comma", fmt.Sprintf("delimiter %q must be a single character", s.Comma)})
	}
	return issues
}

func validateDates(d Dates) []Issue {
	var issues []Issue
	policy := strings.ToLower(d.Policy)
	if policy != "" && !contains(KnownDatePolicies, policy) {
		issues = append(issues, Issue{SeverityError, "dates.policy", fmt.Sprintf("unknown date policy %q", d.Policy)})
	}
	if policy != "strict" && d.Layout != "" {
		issues = append(issues, Issue{SeverityWarning, "dates.layout", "layout is only used by the strict policy"})
	}
	return issues
}

func validateFact(f Fact) []Issue {
	var issues []Issue
	for _, table := range sortedKeys(f.Joins) {
		path := "fact.joins." + table
		if !contains(KnownJoinTables, table) {
			issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf("table %q is not joined by any fact plan", table)})
		}
		if !contains(KnownJoinKinds, strings.ToLower(f.Joins[table])) {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("unknown join kind %q", f.Joins[table])})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	if m.TopN <= 0 {
		issues = append(issues, Issue{SeverityError, "metrics.top_n", fmt.Sprintf("top_n=%d; must be positive", m.TopN)})
	}
	switch {
	case !contains(KnownMetricBackends, m.Backend):
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	case m.Backend == "prompush" && strings.TrimSpace(m.PushgatewayURL) == "":
		issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "prompush backend requires pushgateway_url"})
	case m.Backend == "datadog" && strings.TrimSpace(m.DatadogAddr) == "":
		issues = append(issues, Issue{SeverityWarning, "metrics.datadog_addr", "datadog_addr empty; the client falls back to DD_AGENT_HOST"})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	if o.CSV && strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{SeverityError, "output.dir", "csv output requires output.dir"})
	}
	if o.Preview < 0 {
		issues = append(issues, Issue{SeverityError, "output.preview", "preview must not be negative"})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		issues = append(issues, Issue{SeverityError, "storage.kind", `storage.kind must not be empty; use "none" to disable`})
		return issues
	}
	if !contains(KnownStorageKinds, kind) {
		issues = append(issues, Issue{SeverityWarning, "storage.kind", fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", kind)})
	}
	if kind != "none" && strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "storage.dsn must not be empty"})
	}
	if kind == "sqlite" && s.Schema != "" {
		issues = append(issues, Issue{SeverityWarning, "storage.schema", "sqlite has no schemas; schema is ignored"})
	}
	if s.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, "storage.batch_size", "batch_size must not be negative"})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	switch {
	case r.ReaderWorkers < 0:
		issues = append(issues, Issue{SeverityError, "runtime.reader_workers", "reader_workers must not be negative"})
	case r.ReaderWorkers == 0:
		issues = append(issues, Issue{SeverityWarning, "runtime.reader_workers", "reader_workers=0; files are read one at a time"})
	}
	return issues
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
