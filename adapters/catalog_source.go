// Package adapters defines the catalog data sources the builder loads
// schemas from, and a registry that creates them from configuration.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/effectus/schemadraft/schema"
)

// SourceConfig configures one catalog source
type SourceConfig struct {
	Name    string                 `json:"name" yaml:"name"`
	Type    string                 `json:"type" yaml:"type"`
	Config  map[string]interface{} `json:"config" yaml:"config"`
	BaseDir string                 `json:"-" yaml:"-"`
}

// CatalogSource returns the persisted records of one catalog kind
type CatalogSource interface {
	FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error)
	Close() error
}

// CatalogSourceFactory constructs catalog sources of one type
type CatalogSourceFactory interface {
	Create(config SourceConfig) (CatalogSource, error)
	ValidateConfig(config SourceConfig) error
	GetConfigSchema() ConfigSchema
}

// ConfigSchema describes the keys a source type accepts
type ConfigSchema struct {
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]ConfigProperty `json:"properties" yaml:"properties"`
	Required    []string                  `json:"required,omitempty" yaml:"required,omitempty"`
}

// ConfigProperty describes a single configuration key
type ConfigProperty struct {
	Type        string      `json:"type" yaml:"type"` // "string", "int", "bool", "array", "object", "duration"
	Description string      `json:"description" yaml:"description"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// SourceTypeInfo provides information about a registered source type
type SourceTypeInfo struct {
	Type         string       `json:"type" yaml:"type"`
	ConfigSchema ConfigSchema `json:"config_schema" yaml:"config_schema"`
}

// Registry manages the available source types
type Registry struct {
	factories map[string]CatalogSourceFactory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]CatalogSourceFactory),
	}
}

// Register adds a factory under sourceType, replacing any previous one
func (r *Registry) Register(sourceType string, factory CatalogSourceFactory) error {
	if sourceType == "" {
		return fmt.Errorf("catalog source type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("catalog source factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sourceType] = factory
	return nil
}

// Create validates config and builds a source of config.Type
func (r *Registry) Create(config SourceConfig) (CatalogSource, error) {
	factory := r.factory(config.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown catalog source type: %s", config.Type)
	}
	if err := factory.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config for %s: %w", config.Type, err)
	}
	return factory.Create(config)
}

// Validate checks config without creating a source
func (r *Registry) Validate(config SourceConfig) error {
	factory := r.factory(config.Type)
	if factory == nil {
		return fmt.Errorf("unknown catalog source type: %s", config.Type)
	}
	return factory.ValidateConfig(config)
}

// Types returns the registered source types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// TypeInfo describes a registered source type
func (r *Registry) TypeInfo(sourceType string) (SourceTypeInfo, bool) {
	factory := r.factory(sourceType)
	if factory == nil {
		return SourceTypeInfo{}, false
	}
	return SourceTypeInfo{
		Type:         sourceType,
		ConfigSchema: factory.GetConfigSchema(),
	}, true
}

func (r *Registry) factory(sourceType string) CatalogSourceFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[sourceType]
}

var defaultRegistry = NewRegistry()

// RegisterCatalogSource registers a source type globally
func RegisterCatalogSource(sourceType string, factory CatalogSourceFactory) error {
	return defaultRegistry.Register(sourceType, factory)
}

// CreateCatalogSource creates a source from configuration
func CreateCatalogSource(config SourceConfig) (CatalogSource, error) {
	return defaultRegistry.Create(config)
}

// ValidateConfig checks a source configuration against its factory
func ValidateConfig(config SourceConfig) error {
	return defaultRegistry.Validate(config)
}

// GetAvailableSourceTypes returns all registered source types
func GetAvailableSourceTypes() []string {
	return defaultRegistry.Types()
}

// GetSourceTypeInfo describes a globally registered source type
func GetSourceTypeInfo(sourceType string) (SourceTypeInfo, bool) {
	return defaultRegistry.TypeInfo(sourceType)
}

// ResolvePath resolves path relative to the config's base directory
func ResolvePath(config SourceConfig, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) || config.BaseDir == "" {
		return path
	}
	return filepath.Join(config.BaseDir, path)
}

// DecodeConfig decodes the free-form config map into out
func DecodeConfig(config SourceConfig, out interface{}) error {
	raw, err := json.Marshal(config.Config)
	if err != nil {
		return fmt.Errorf("encoding %s source config: %w", config.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s source config: %w", config.Type, err)
	}
	return nil
}
