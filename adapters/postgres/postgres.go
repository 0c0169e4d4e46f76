// Package postgres provides a catalog source backed by a PostgreSQL table,
// read through a pgx pool and migrated with goose.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	selectRecords = `SELECT uid, category, schema FROM schema_catalog WHERE kind = $1 ORDER BY uid`
	upsertRecord  = `INSERT INTO schema_catalog (kind, uid, category, schema, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (kind, uid) DO UPDATE SET category = EXCLUDED.category, schema = EXCLUDED.schema, updated_at = now()`
)

// Config configures the PostgreSQL catalog source
type Config struct {
	DSN             string `json:"dsn" yaml:"dsn"`
	MaxConnections  int    `json:"max_connections" yaml:"max_connections"`
	ConnMaxLifetime string `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	AutoMigrate     bool   `json:"auto_migrate" yaml:"auto_migrate"`
}

func (c *Config) setDefaults() {
	if c.MaxConnections == 0 {
		c.MaxConnections = 4
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.ConnMaxIdleTime == "" {
		c.ConnMaxIdleTime = "30m"
	}
}

func validateConfig(c *Config) error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if _, err := pgxpool.ParseConfig(c.DSN); err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}
	for name, value := range map[string]string{
		"conn_max_lifetime":  c.ConnMaxLifetime,
		"conn_max_idle_time": c.ConnMaxIdleTime,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Source reads catalogs from the schema_catalog table
type Source struct {
	pool   *pgxpool.Pool
	config *Config
}

// NewSource connects to the database and, when enabled, applies the
// catalog migrations
func NewSource(ctx context.Context, config *Config) (*Source, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config.setDefaults()

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MaxConnLifetime, _ = time.ParseDuration(config.ConnMaxLifetime)
	poolConfig.MaxConnIdleTime, _ = time.ParseDuration(config.ConnMaxIdleTime)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	source := &Source{pool: pool, config: config}
	if config.AutoMigrate {
		if err := Migrate(ctx, config.DSN); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return source, nil
}

// Migrate applies the embedded catalog migrations
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// FetchCatalog returns the records of kind ordered by uid
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	rows, err := s.pool.Query(ctx, selectRecords, string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying %s catalog: %w", kind, err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		var uid, category string
		var raw []byte
		if err := rows.Scan(&uid, &category, &raw); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		record, err := decodeRow(uid, category, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s catalog: %w", kind, err)
	}
	return records, nil
}

// Put inserts or replaces a record
func (s *Source) Put(ctx context.Context, kind schema.Kind, record schema.Record) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	raw, err := json.Marshal(record.Schema)
	if err != nil {
		return fmt.Errorf("encoding schema %q: %w", record.UID, err)
	}
	if _, err := s.pool.Exec(ctx, upsertRecord, string(kind), record.UID, record.Category, raw); err != nil {
		return fmt.Errorf("storing %s %q: %w", kind, record.UID, err)
	}
	return nil
}

// Close releases the pool
func (s *Source) Close() error {
	s.pool.Close()
	return nil
}

func decodeRow(uid, category string, raw []byte) (schema.Record, error) {
	record := schema.Record{UID: uid, Category: category}
	if err := json.Unmarshal(raw, &record.Schema); err != nil {
		return schema.Record{}, fmt.Errorf("decoding schema %q: %w", uid, err)
	}
	return record, nil
}

// Factory creates PostgreSQL sources
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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return NewSource(ctx, &cfg)
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "schema_catalog table in PostgreSQL",
		Properties: map[string]adapters.ConfigProperty{
			"dsn": {
				Type:        "string",
				Description: "PostgreSQL connection string",
			},
			"max_connections": {
				Type:        "int",
				Description: "pool size",
				Default:     4,
			},
			"conn_max_lifetime": {
				Type:        "duration",
				Description: "maximum connection lifetime",
				Default:     "1h",
			},
			"conn_max_idle_time": {
				Type:        "duration",
				Description: "maximum connection idle time",
				Default:     "30m",
			},
			"auto_migrate": {
				Type:        "bool",
				Description: "create the schema_catalog table on startup",
				Default:     false,
			},
		},
		Required: []string{"dsn"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("postgres", &Factory{})
}
