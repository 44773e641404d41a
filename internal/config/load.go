package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: ETL_STORAGE__KIND sets storage.kind.
const EnvPrefix = "ETL_"

// FlagKeys maps CLI flag names to configuration keys. Flags not listed here
// are not configuration.
var FlagKeys = map[string]string{
	"source-dir":   "source.dir",
	"source-url":   "source.base_url",
	"output-dir":   "output.dir",
	"storage-kind": "storage.kind",
	"dsn":          "storage.dsn",
	"workers":      "runtime.reader_workers",
	"markdown":     "output.markdown",
}

// LoadOptions names the optional sources of Load.
type LoadOptions struct {
	// File is a YAML or JSON config file; empty skips it.
	File string
	// DotEnv is a dotenv file whose ETL_ entries are applied below the real
	// environment. A missing file is ignored.
	DotEnv string
	// Flags are applied last; only flags set on the command line count.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ for tests.
	Environ func() []string
}

// Load builds a Pipeline from, lowest precedence first: Defaults, the config
// file, the dotenv file, ETL_* environment variables, then CLI flags.
func Load(opt LoadOptions) (Pipeline, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Pipeline{}, fmt.Errorf("config: defaults: %w", err)
	}

	if opt.File != "" {
		if err := k.Load(file.Provider(opt.File), yaml.Parser()); err != nil {
			return Pipeline{}, fmt.Errorf("config: read %s: %w", opt.File, err)
		}
	}

	if opt.DotEnv != "" {
		vals, err := godotenv.Read(opt.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Pipeline{}, fmt.Errorf("config: read %s: %w", opt.DotEnv, err)
		default:
			if err := k.Load(confmap.Provider(envMap(vals), "."), nil); err != nil {
				return Pipeline{}, fmt.Errorf("config: dotenv: %w", err)
			}
		}
	}

	if opt.Environ != nil {
		vals := map[string]string{}
		for _, kv := range opt.Environ() {
			if key, val, ok := strings.Cut(kv, "="); ok {
				vals[key] = val
			}
		}
		if err := k.Load(confmap.Provider(envMap(vals), "."), nil); err != nil {
			return Pipeline{}, fmt.Errorf("config: env: %w", err)
		}
	} else if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return Pipeline{}, fmt.Errorf("config: env: %w", err)
	}

	if opt.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opt.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opt.Flags, f)
		}), nil); err != nil {
			return Pipeline{}, fmt.Errorf("config: flags: %w", err)
		}
	}

	var p Pipeline
	if err := k.Unmarshal("", &p); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode: %w", err)
	}
	return p, nil
}

// EnvKey maps ETL_SOURCE__BASE_URL to source.base_url.
func EnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func envMap(vals map[string]string) map[string]any {
	out := make(map[string]any, len(vals))
	for key, val := range vals {
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		out[EnvKey(key)] = val
	}
	return out
}
