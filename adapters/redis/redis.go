// Package redis provides a catalog source that keeps one Redis hash per
// catalog kind, mapping uid to the JSON-encoded record.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

const defaultKeyPrefix = "schemadraft:"

// Config holds Redis source configuration
type Config struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Close() error
}

// Source reads catalogs from Redis hashes
type Source struct {
	client hashClient
	prefix string
}

// NewSource creates a Redis client and checks the connection
func NewSource(ctx context.Context, config *Config) (*Source, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newSource(client, config.KeyPrefix), nil
}

func newSource(client hashClient, prefix string) *Source {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Source{client: client, prefix: prefix}
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if config.DB < 0 {
		return fmt.Errorf("db must not be negative")
	}
	return nil
}

// Key returns the hash holding the records of kind
func (s *Source) Key(kind schema.Kind) string {
	return s.prefix + kind.Endpoint()
}

// FetchCatalog returns the records of kind ordered by uid
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	key := s.Key(kind)
	entries, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return decodeEntries(entries)
}

// Put stores record under its uid
func (s *Source) Put(ctx context.Context, kind schema.Kind, record schema.Record) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record %q: %w", record.UID, err)
	}
	if err := s.client.HSet(ctx, s.Key(kind), record.UID, data).Err(); err != nil {
		return fmt.Errorf("storing %s %q: %w", kind, record.UID, err)
	}
	return nil
}

// Close closes the client
func (s *Source) Close() error {
	return s.client.Close()
}

func decodeEntries(entries map[string]string) ([]schema.Record, error) {
	uids := make([]string, 0, len(entries))
	for uid := range entries {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	records := make([]schema.Record, 0, len(entries))
	for _, uid := range uids {
		var record schema.Record
		if err := json.Unmarshal([]byte(entries[uid]), &record); err != nil {
			return nil, fmt.Errorf("decoding record %q: %w", uid, err)
		}
		// the hash field is authoritative
		record.UID = uid
		records = append(records, record)
	}
	return records, nil
}

// Factory creates Redis sources
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
	return NewSource(context.Background(), &cfg)
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "one Redis hash per catalog kind",
		Properties: map[string]adapters.ConfigProperty{
			"addr": {
				Type:        "string",
				Description: "Redis server address, e.g. localhost:6379",
			},
			"password": {
				Type:        "string",
				Description: "Redis password",
			},
			"db": {
				Type:        "int",
				Description: "Redis database number",
				Default:     0,
			},
			"key_prefix": {
				Type:        "string",
				Description: "prefix of the components and content-types hashes",
				Default:     defaultKeyPrefix,
			},
		},
		Required: []string{"addr"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("redis", &Factory{})
}
