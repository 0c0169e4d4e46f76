// Package config loads the schemadraft configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/internal/logging"
)

const (
	DefaultPluginID    = "content-type-builder"
	DefaultLoadTimeout = 30 * time.Second
)

// Config is the decoded configuration file
type Config struct {
	PluginID    string                `yaml:"plugin_id" json:"plugin_id"`
	LoadTimeout string                `yaml:"load_timeout" json:"load_timeout"`
	Log         logging.Config        `yaml:"log" json:"log"`
	Source      adapters.SourceConfig `yaml:"source" json:"source"`

	// Notify optionally names a change feed for catalog watch when the
	// source itself cannot be watched
	Notify adapters.SourceConfig `yaml:"notify" json:"notify"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML or JSON file, chosen by extension. Relative paths in
// the source config resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}

	cfg.applyDefaults()
	if cfg.Source.BaseDir == "" {
		cfg.Source.BaseDir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PluginID == "" {
		c.PluginID = DefaultPluginID
	}
	if c.LoadTimeout == "" {
		c.LoadTimeout = DefaultLoadTimeout.String()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatConsole
	}
	if c.Source.Name == "" {
		c.Source.Name = c.Source.Type
	}
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.LoadTimeout)
	if err != nil {
		return fmt.Errorf("load_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("load_timeout must be positive")
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if strings.Contains(strings.Trim(c.PluginID, "/"), "/") {
		return fmt.Errorf("plugin_id must be a single path segment")
	}
	return nil
}

// Timeout returns the catalog load timeout
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.LoadTimeout)
	if err != nil || d <= 0 {
		return DefaultLoadTimeout
	}
	return d
}
