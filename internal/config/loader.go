package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys.
const EnvPrefix = "LAZYCODE_"

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// never loaded into the config.
var flagKeys = map[string]string{
	"mode":       "mode",
	"app":        "app_name",
	"iife":       "wrap_in_iife",
	"quote":      "quote",
	"emit-empty": "emit_empty_registry",
	"include":    "include",
	"index":      "index_file",
	"out":        "out_dir",
	"verify":     "verify",
	"cache-path": "cache.path",
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"wrap_in_iife": true,
	"include":      true,
}

// Loaded is the result of Load: the settings plus the file they came from.
type Loaded struct {
	*Config
	File string // empty when no config file was read
}

// Load layers defaults, the config file, LAZYCODE_* env vars and explicitly
// set flags, in increasing order of precedence. cfgFile may be empty, in
// which case .lazycode.yaml in the working directory is used when present.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	def := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"mode":                def.Mode,
		"app_name":            def.AppName,
		"wrap_in_iife":        def.WrapInIIFE,
		"quote":               def.Quote,
		"emit_empty_registry": def.EmitEmptyRegistry,
		"include":             def.Include,
		"index_file":          def.IndexFile,
		"out_dir":             def.OutDir,
		"verify":              def.Verify,
		"cache.enabled":       def.Cache.Enabled,
		"cache.path":          def.Cache.Path,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "no-cache" {
				return "cache.enabled", false
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loaded{Config: &cfg, File: used}, nil
}

// findConfigFile returns the explicit path if given, else FileName when it
// exists in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}

// envKey maps LAZYCODE_CACHE_PATH to cache.path and LAZYCODE_APP_NAME to app_name.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "cache_"); ok {
		key = "cache." + rest
	}
	if listKeys[key] {
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		return key, items
	}
	return key, value
}
