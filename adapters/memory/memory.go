// Package memory provides a catalog source backed by records held in
// process, configured inline or set programmatically.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

// Config lists the records served by the source
type Config struct {
	Components   []schema.Record `json:"components" yaml:"components"`
	ContentTypes []schema.Record `json:"content_types" yaml:"content_types"`
}

// Source serves catalogs from memory
type Source struct {
	mu       sync.RWMutex
	catalogs map[schema.Kind][]schema.Record
	failures map[schema.Kind]error
}

// New creates a source holding copies of the given records
func New(components, contentTypes []schema.Record) *Source {
	s := &Source{
		catalogs: make(map[schema.Kind][]schema.Record),
		failures: make(map[schema.Kind]error),
	}
	s.Set(schema.KindComponent, components)
	s.Set(schema.KindContentType, contentTypes)
	return s
}

// Set replaces the records of kind
func (s *Source) Set(kind schema.Kind, records []schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[kind] = cloneRecords(records)
}

// Fail makes every fetch of kind return err until it is cleared with a
// nil error
func (s *Source) Fail(kind schema.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, kind)
		return
	}
	s.failures[kind] = err
}

// FetchCatalog returns copies of the records of kind
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[kind]; err != nil {
		return nil, err
	}
	return cloneRecords(s.catalogs[kind]), nil
}

// Close is a no-op
func (s *Source) Close() error {
	return nil
}

func cloneRecords(records []schema.Record) []schema.Record {
	out := make([]schema.Record, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	return out
}

// Factory creates memory sources
type Factory struct{}

func (f *Factory) ValidateConfig(config adapters.SourceConfig) error {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	for _, record := range append(cfg.Components, cfg.ContentTypes...) {
		if record.UID == "" {
			return fmt.Errorf("record %q has no uid", record.Schema.Name)
		}
	}
	return nil
}

func (f *Factory) Create(config adapters.SourceConfig) (adapters.CatalogSource, error) {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return New(cfg.Components, cfg.ContentTypes), nil
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "records defined inline in the configuration",
		Properties: map[string]adapters.ConfigProperty{
			"components": {
				Type:        "array",
				Description: "component records (uid, category, schema)",
			},
			"content_types": {
				Type:        "array",
				Description: "content-type records (uid, schema)",
			},
		},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("memory", &Factory{})
}
