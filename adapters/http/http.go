// Package http provides a catalog source that reads schemas from the
// content-type builder's REST endpoints.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

const (
	defaultPluginID     = "content-type-builder"
	defaultTimeout      = 10 * time.Second
	defaultAPIKeyHeader = "X-API-Key"
	defaultMaxPayload   = 32 << 20
)

// Config holds HTTP source configuration
type Config struct {
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	PluginID    string            `json:"plugin_id" yaml:"plugin_id"`
	AuthMethod  string            `json:"auth_method" yaml:"auth_method"`
	AuthConfig  map[string]string `json:"auth_config" yaml:"auth_config"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Timeout     string            `json:"timeout" yaml:"timeout"`
	RecordsPath string            `json:"records_path" yaml:"records_path"`
	MaxPayload  int64             `json:"max_payload_bytes" yaml:"max_payload_bytes"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// PayloadTooLargeError is returned when a response body exceeds
// max_payload_bytes
type PayloadTooLargeError struct {
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeds max_payload_bytes (%d)", e.Limit)
}

// Source fetches catalogs over HTTP
type Source struct {
	config *Config
	client *http.Client
}

// NewSource creates an HTTP catalog source
func NewSource(config *Config, client *http.Client) (*Source, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.PluginID == "" {
		config.PluginID = defaultPluginID
	}
	if config.MaxPayload == 0 {
		config.MaxPayload = defaultMaxPayload
	}
	if client == nil {
		timeout := defaultTimeout
		if config.Timeout != "" {
			timeout, _ = time.ParseDuration(config.Timeout)
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Source{config: config, client: client}, nil
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", parsed.Scheme)
	}
	if config.MaxPayload < 0 {
		return fmt.Errorf("max_payload_bytes must not be negative")
	}
	if config.Timeout != "" {
		if d, err := time.ParseDuration(config.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout: %q", config.Timeout)
		}
	}
	switch config.AuthMethod {
	case "", "none":
	case "bearer":
		if config.AuthConfig["token"] == "" {
			return fmt.Errorf("auth_config.token is required for bearer auth")
		}
	case "api_key":
		if config.AuthConfig["key"] == "" {
			return fmt.Errorf("auth_config.key is required for api_key auth")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", config.AuthMethod)
	}
	return nil
}

// Endpoint returns the URL the records of kind are read from
func (s *Source) Endpoint(kind schema.Kind) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + strings.Trim(s.config.PluginID, "/") + "/" + kind.Endpoint()
}

// FetchCatalog issues a GET for the kind's endpoint and decodes the records
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	endpoint := s.Endpoint(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.config.Headers {
		req.Header.Set(key, value)
	}
	s.authenticate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(truncate(string(body), 256))}
	}
	if int64(len(body)) > s.config.MaxPayload {
		return nil, fmt.Errorf("GET %s: %w", endpoint, &PayloadTooLargeError{Limit: s.config.MaxPayload})
	}

	records, err := adapters.DecodeRecordsPath(body, s.config.RecordsPath)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return records, nil
}

func (s *Source) authenticate(req *http.Request) {
	switch s.config.AuthMethod {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+s.config.AuthConfig["token"])
	case "api_key":
		header := s.config.AuthConfig["header"]
		if header == "" {
			header = defaultAPIKeyHeader
		}
		req.Header.Set(header, s.config.AuthConfig["key"])
	}
}

// Close releases idle connections
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Factory creates HTTP sources
type Factory struct{}

func (f *Factory) ValidateConfig(config adapters.SourceConfig) error {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	return validateConfig(&cfg)
}

func (f *Factory) Create(config adapters.SourceConfig) (adapters.CatalogSource, error) {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewSource(&cfg, nil)
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "content-type builder REST endpoints",
		Properties: map[string]adapters.ConfigProperty{
			"base_url": {
				Type:        "string",
				Description: "server URL, e.g. http://localhost:1337",
			},
			"plugin_id": {
				Type:        "string",
				Description: "plugin path segment",
				Default:     defaultPluginID,
			},
			"auth_method": {
				Type:        "string",
				Description: "none, bearer or api_key",
				Default:     "none",
			},
			"auth_config": {
				Type:        "object",
				Description: "token for bearer; key and header for api_key",
			},
			"headers": {
				Type:        "object",
				Description: "extra request headers",
			},
			"timeout": {
				Type:        "duration",
				Description: "request timeout",
				Default:     defaultTimeout.String(),
			},
			"records_path": {
				Type:        "string",
				Description: "gjson path of the record array in enveloped responses",
				Default:     adapters.DefaultRecordsPath,
			},
			"max_payload_bytes": {
				Type:        "integer",
				Description: "largest accepted response body",
				Default:     defaultMaxPayload,
			},
		},
		Required: []string{"base_url"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("http", &Factory{})
}
