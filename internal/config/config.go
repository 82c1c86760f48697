// Package config loads lazycode settings from defaults, .lazycode.yaml,
// LAZYCODE_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeusData/lazycode/internal/lazy"
)

// FileName is the project-level config file looked up in the working directory.
const FileName = ".lazycode.yaml"

// Config holds all user-facing settings.
type Config struct {
	Mode              string      `koanf:"mode" yaml:"mode"`
	AppName           string      `koanf:"app_name" yaml:"app_name"`
	WrapInIIFE        []string    `koanf:"wrap_in_iife" yaml:"wrap_in_iife"`
	Quote             string      `koanf:"quote" yaml:"quote"`
	EmitEmptyRegistry bool        `koanf:"emit_empty_registry" yaml:"emit_empty_registry"`
	Include           []string    `koanf:"include" yaml:"include"`
	IndexFile         string      `koanf:"index_file" yaml:"index_file"`
	OutDir            string      `koanf:"out_dir" yaml:"out_dir"`
	Verify            bool        `koanf:"verify" yaml:"verify"`
	Cache             CacheConfig `koanf:"cache" yaml:"cache"`
}

// CacheConfig controls the result cache. An empty Path means the default
// location under ~/.cache/lazycode.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() *Config {
	return &Config{
		Mode:       string(lazy.ModeStrings),
		WrapInIIFE: []string{},
		Quote:      "'",
		Include:    []string{},
		Cache:      CacheConfig{Enabled: true},
	}
}

// Validate checks the fields lazy.Config does not cover and then the
// transformer settings themselves.
func (c *Config) Validate() error {
	if len(c.Quote) != 1 {
		return &lazy.ConfigError{Field: "quote", Value: c.Quote, Msg: "must be a single character"}
	}
	for _, pat := range c.Include {
		if _, err := filepath.Match(pat, ""); err != nil {
			return &lazy.ConfigError{Field: "include", Value: pat, Msg: err.Error()}
		}
	}
	lc, err := c.toLazy()
	if err != nil {
		return err
	}
	return lc.Validate()
}

// ToLazy converts the settings into a validated transformer config.
func (c *Config) ToLazy() (lazy.Config, error) {
	if err := c.Validate(); err != nil {
		return lazy.Config{}, err
	}
	return c.toLazy()
}

func (c *Config) toLazy() (lazy.Config, error) {
	mode, err := lazy.ParseMode(c.Mode)
	if err != nil {
		return lazy.Config{}, err
	}
	var quote byte
	if len(c.Quote) == 1 {
		quote = c.Quote[0]
	}
	return lazy.Config{
		Mode:              mode,
		WrapInIIFE:        c.WrapInIIFE,
		AppName:           strings.TrimSpace(c.AppName),
		Quote:             quote,
		EmitEmptyRegistry: c.EmitEmptyRegistry,
	}, nil
}

// WriteDefault writes the default config as YAML to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
