package config

import (
	"fmt"
	"strings"

	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/version"
	"github.com/mitchellh/mapstructure"
)

// Binding backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Binding file formats
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// BindingConfig selects where workspace bindings are persisted.
type BindingConfig struct {
	// Backend is "file" (one record per workspace under Dir) or "sqlite".
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=file,enum=sqlite,description=Binding storage backend"`
	// Dir is the workspace-relative directory holding the binding file.
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=Workspace-relative directory for binding files"`
	// Format is the file format used when writing new binding files.
	Format string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty" jsonschema:"enum=yaml,enum=toml,description=Binding file format"`
	// Database is the SQLite database path for the sqlite backend.
	Database string `yaml:"database,omitempty" toml:"database,omitempty" json:"database,omitempty" jsonschema:"description=SQLite database path (sqlite backend)"`
}

// WatchConfig controls the binding file watcher used by `qlink watch`.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"description=Watch binding files for changes"`
	DebounceMs int   `yaml:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" json:"debounce_ms,omitempty" jsonschema:"description=Debounce window for file events in milliseconds"`
}

// RefreshConfig controls the refresh workflow started by the connect section.
type RefreshConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty" jsonschema:"description=Timeout for a single server request"`
	UserAgent      string `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty" jsonschema:"description=User-Agent header sent to the quality server"`
}

// Config is the qlink configuration loaded from qlink.yml or qlink.toml.
type Config struct {
	Version string        `yaml:"version" toml:"version" json:"version"`
	Binding BindingConfig `yaml:"binding,omitempty" toml:"binding,omitempty" json:"binding,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty" toml:"watch,omitempty" json:"watch,omitempty"`
	Refresh RefreshConfig `yaml:"refresh,omitempty" toml:"refresh,omitempty" json:"refresh,omitempty"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"extensions,omitempty" jsonschema:"-"`
}

// knownKeys are the top-level keys decoded into typed fields.
var knownKeys = map[string]bool{
	"version": true,
	"binding": true,
	"watch":   true,
	"refresh": true,
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Binding.Backend == "" {
		c.Binding.Backend = BackendFile
	}
	if c.Binding.Dir == "" {
		c.Binding.Dir = ".qlink"
	}
	if c.Binding.Format == "" {
		c.Binding.Format = FormatYAML
	}
	if c.Watch.Enabled == nil {
		trueVal := true
		c.Watch.Enabled = &trueVal
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = 100
	}
	if c.Refresh.TimeoutSeconds == 0 {
		c.Refresh.TimeoutSeconds = 10
	}
	if c.Refresh.UserAgent == "" {
		c.Refresh.UserAgent = version.UserAgent()
	}
}

// Validate checks enum fields and numeric ranges.
func (c *Config) Validate() error {
	var problems []string

	switch c.Binding.Backend {
	case "", BackendFile, BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("binding.backend must be 'file' or 'sqlite', got '%s'", c.Binding.Backend))
	}

	switch c.Binding.Format {
	case "", FormatYAML, FormatTOML:
	default:
		problems = append(problems, fmt.Sprintf("binding.format must be 'yaml' or 'toml', got '%s'", c.Binding.Format))
	}

	if c.Watch.DebounceMs < 0 {
		problems = append(problems, "watch.debounce_ms must not be negative")
	}
	if c.Refresh.TimeoutSeconds < 0 {
		problems = append(problems, "refresh.timeout_seconds must not be negative")
	}

	if len(problems) > 0 {
		return errors.ConfigInvalid(strings.Join(problems, "; ")).
			WithDetail("problems", problems)
	}
	return nil
}

// WatchEnabled reports whether the binding watcher should run.
func (c *Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded qlink.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
