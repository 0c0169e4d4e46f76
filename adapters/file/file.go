// Package file provides a catalog source that reads schemas from JSON or
// YAML files and can watch them for changes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Config holds file source configuration. Path is either a directory with
// one file per kind (components.json, content-types.yaml, ...) or a single
// document holding both lists.
type Config struct {
	Path string `json:"path" yaml:"path"`
}

// Source reads catalogs from disk on every fetch
type Source struct {
	path string
}

// bundle is the single-document layout
type bundle struct {
	Components   []schema.Record `json:"components" yaml:"components"`
	ContentTypes []schema.Record `json:"content_types" yaml:"content_types"`
}

// NewSource creates a file catalog source
func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}
	return &Source{path: path}, nil
}

// Path returns the file or directory the source reads
func (s *Source) Path() string {
	return s.path
}

// FetchCatalog reads the records of kind
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}
	if !info.IsDir() {
		b, err := readBundle(s.path)
		if err != nil {
			return nil, err
		}
		if kind == schema.KindComponent {
			return b.Components, nil
		}
		return b.ContentTypes, nil
	}

	path, err := kindFile(s.path, kind)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return []schema.Record{}, nil
	}
	return readRecords(path)
}

// Close is a no-op
func (s *Source) Close() error {
	return nil
}

func kindFile(dir string, kind schema.Kind) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, kind.Endpoint()+ext)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("catalog file: %w", err)
		}
	}
	return "", nil
}

func readRecords(path string) ([]schema.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	if isYAML(path) {
		var records []schema.Record
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return validate(path, records)
	}
	records, err := adapters.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func readBundle(path string) (bundle, error) {
	var b bundle
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("reading catalog file: %w", err)
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &b); err != nil {
			return b, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parsing %s: %w", path, err)
	}
	if b.Components, err = validate(path, b.Components); err != nil {
		return b, err
	}
	if b.ContentTypes, err = validate(path, b.ContentTypes); err != nil {
		return b, err
	}
	return b, nil
}

func validate(path string, records []schema.Record) ([]schema.Record, error) {
	for i, record := range records {
		if record.UID == "" {
			return nil, fmt.Errorf("parsing %s: %w: record %d has no uid", path, adapters.ErrInvalidPayload, i)
		}
	}
	if records == nil {
		records = []schema.Record{}
	}
	return records, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Factory creates file sources
type Factory struct{}

func (f *Factory) ValidateConfig(config adapters.SourceConfig) error {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	if cfg.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

func (f *Factory) Create(config adapters.SourceConfig) (adapters.CatalogSource, error) {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewSource(adapters.ResolvePath(config, cfg.Path))
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "JSON or YAML catalog files",
		Properties: map[string]adapters.ConfigProperty{
			"path": {
				Type:        "string",
				Description: "directory with components/content-types files, or a single catalog document",
			},
		},
		Required: []string{"path"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("file", &Factory{})
}

// WriteCatalog stores records as {kind}.json in dir, in the enveloped
// layout FetchCatalog reads. The file is replaced atomically so a watcher
// never sees a partial write.
func WriteCatalog(dir string, kind schema.Kind, records []schema.Record) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	if _, err := validate(dir, records); err != nil {
		return err
	}
	payload, err := adapters.EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding %s catalog: %w", kind, err)
	}

	tmp, err := os.CreateTemp(dir, "."+kind.Endpoint()+"-*.json")
	if err != nil {
		return fmt.Errorf("writing %s catalog: %w", kind, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s catalog: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s catalog: %w", kind, err)
	}
	target := filepath.Join(dir, kind.Endpoint()+".json")
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("writing %s catalog: %w", kind, err)
	}
	return nil
}
