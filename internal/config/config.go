// Package config defines the configuration model of an ETL run and loads it
// from layered sources.
//
// Example (YAML; JSON files are accepted too):
//
//	job: olist
//	source:
//	  dir: data/raw
//	  encoding: utf-8
//	dates:
//	  policy: permissive
//	fact:
//	  joins:
//	    customers: inner
//	metrics:
//	  top_n: 10
//	output:
//	  dir: outputs
//	storage:
//	  kind: sqlite
//	  dsn: outputs/etl.db
package config

// Pipeline is the top-level configuration of one run.
type Pipeline struct {
	// Job names the pipeline; it labels logs and metrics.
	Job string `koanf:"job"`

	Source    Source        `koanf:"source"`
	Dates     Dates         `koanf:"dates"`
	Transform Transform     `koanf:"transform"`
	Missing   Missing       `koanf:"missing"`
	Fact      Fact          `koanf:"fact"`
	Metrics   Metrics       `koanf:"metrics"`
	Output    Output        `koanf:"output"`
	Storage   Storage       `koanf:"storage"`
	Runtime   RuntimeConfig `koanf:"runtime"`
}

// Source locates the export files. Dir reads <dir>/<table>.csv; BaseURL, when
// set, fetches <base_url>/<table>.csv over HTTP instead.
type Source struct {
	Dir              string `koanf:"dir"`
	BaseURL          string `koanf:"base_url"`
	Encoding         string `koanf:"encoding"`
	Comma            string `koanf:"comma"`
	TrimSpace        bool   `koanf:"trim_space"`
	NormalizeUnicode bool   `koanf:"normalize_unicode"`
}

// Dates configures the date normalizer.
type Dates struct {
	// Policy is "strict" (Layout only) or "permissive".
	Policy string `koanf:"policy"`
	Layout string `koanf:"layout"`
	// DetectByName also normalizes columns whose name contains "date" or
	// "timestamp".
	DetectByName bool `koanf:"detect_by_name"`
	// Columns overrides the per-table date column lists.
	Columns map[string][]string `koanf:"columns"`
}

// Transform holds options of the cleaning stages.
type Transform struct {
	// DropColumns lists columns removed per table after dedup.
	DropColumns map[string][]string `koanf:"drop_columns"`
}

// Missing configures the missing-value resolver.
type Missing struct {
	CategorySentinel string `koanf:"category_sentinel"`
}

// Fact configures the fact builder.
type Fact struct {
	// Joins overrides the join kind per joined table
	// (inner, left, right, outer).
	Joins map[string]string `koanf:"joins"`
	// Diagnose runs the outer-join key diagnostics.
	Diagnose bool `koanf:"diagnose"`
}

// Metrics configures the aggregator and the operational metrics backend.
type Metrics struct {
	TopN int `koanf:"top_n"`
	// Backend is "none", "prompush" or "datadog".
	Backend        string `koanf:"backend"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
	Namespace      string `koanf:"namespace"`
}

// Output configures flat-file output and console reports.
type Output struct {
	Dir string `koanf:"dir"`
	CSV bool   `koanf:"csv"`
	// Markdown renders console tables as Markdown.
	Markdown bool `koanf:"markdown"`
	// Preview is the number of rows shown per derived table.
	Preview int `koanf:"preview"`
}

// Storage selects the relational sink. Kind "none" disables it.
type Storage struct {
	Kind      string `koanf:"kind"`
	DSN       string `koanf:"dsn"`
	Schema    string `koanf:"schema"`
	BatchSize int    `koanf:"batch_size"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	ReaderWorkers int `koanf:"reader_workers"`
}

// Defaults returns the flat key map loaded before any other source.
func Defaults() map[string]any {
	return map[string]any{
		"job":                       "olist",
		"source.dir":                "data",
		"source.encoding":           "utf-8",
		"source.comma":              ",",
		"source.trim_space":         true,
		"dates.policy":              "permissive",
		"dates.detect_by_name":      true,
		"transform.drop_columns":    map[string]any{"order_reviews": []any{"review_comment_title", "review_comment_message"}},
		"missing.category_sentinel": "Inconnu",
		"fact.diagnose":             true,
		"metrics.top_n":             10,
		"metrics.backend":           "none",
		"metrics.namespace":         "etl.",
		"output.dir":                "outputs",
		"output.csv":                true,
		"output.preview":            5,
		"storage.kind":              "sqlite",
		"storage.dsn":               "outputs/etl.db",
		"storage.batch_size":        500,
		"runtime.reader_workers":    4,
	}
}
