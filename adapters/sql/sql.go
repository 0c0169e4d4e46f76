// Package sql provides a catalog source that reads schemas from a table in
// MySQL or PostgreSQL through database/sql.
package sql

import (
	"context"
	sqldb "database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

const defaultTable = "schema_catalog"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds SQL source configuration. The table needs kind, uid,
// category and schema (JSON text) columns; the column names can be
// remapped.
type Config struct {
	Driver        string            `json:"driver" yaml:"driver"`
	DSN           string            `json:"dsn" yaml:"dsn"`
	Table         string            `json:"table" yaml:"table"`
	ColumnMapping map[string]string `json:"column_mapping" yaml:"column_mapping"`
	Timeout       string            `json:"timeout" yaml:"timeout"`
}

// Source reads catalogs with a single query per kind
type Source struct {
	config  *Config
	db      *sqldb.DB
	query   string
	timeout time.Duration
}

// NewSource opens the database handle. No connection is made until the
// first fetch.
func NewSource(config *Config) (*Source, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	db, err := sqldb.Open(driverName(config.Driver), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening sql connection: %w", err)
	}
	return newSource(config, db), nil
}

func newSource(config *Config, db *sqldb.DB) *Source {
	var timeout time.Duration
	if config.Timeout != "" {
		timeout, _ = time.ParseDuration(config.Timeout)
	}
	return &Source{
		config:  config,
		db:      db,
		query:   buildQuery(config),
		timeout: timeout,
	}
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	switch driverName(config.Driver) {
	case "mysql", "postgres":
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unsupported sql driver: %s", config.Driver)
	}
	if config.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if config.Table != "" && !identifier.MatchString(config.Table) {
		return fmt.Errorf("invalid table name: %q", config.Table)
	}
	for column, mapped := range config.ColumnMapping {
		switch column {
		case "kind", "uid", "category", "schema":
		default:
			return fmt.Errorf("unknown column in column_mapping: %s", column)
		}
		if !identifier.MatchString(mapped) {
			return fmt.Errorf("invalid column name for %s: %q", column, mapped)
		}
	}
	if config.Timeout != "" {
		if _, err := time.ParseDuration(config.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	return nil
}

func driverName(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func buildQuery(config *Config) string {
	table := config.Table
	if table == "" {
		table = defaultTable
	}
	column := func(name string) string {
		if mapped, ok := config.ColumnMapping[name]; ok {
			return mapped
		}
		return name
	}
	placeholder := "?"
	if driverName(config.Driver) == "postgres" {
		placeholder = "$1"
	}
	return fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s = %s ORDER BY %s",
		column("uid"), column("category"), column("schema"), table, column("kind"), placeholder, column("uid"))
}

// FetchCatalog runs the catalog query for kind
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, s.query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying %s catalog: %w", kind, err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		var uid string
		var category sqldb.NullString
		var raw []byte
		if err := rows.Scan(&uid, &category, &raw); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		record := schema.Record{UID: uid, Category: category.String}
		if err := json.Unmarshal(raw, &record.Schema); err != nil {
			return nil, fmt.Errorf("decoding schema %q: %w", uid, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database handle
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Factory creates SQL sources
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
	return NewSource(&cfg)
}

func (f *Factory) GetConfigSchema() adapters.ConfigSchema {
	return adapters.ConfigSchema{
		Description: "catalog table read through database/sql",
		Properties: map[string]adapters.ConfigProperty{
			"driver": {
				Type:        "string",
				Description: "database/sql driver name (mysql, postgres)",
			},
			"dsn": {
				Type:        "string",
				Description: "connection string for the database",
			},
			"table": {
				Type:        "string",
				Description: "catalog table",
				Default:     defaultTable,
			},
			"column_mapping": {
				Type:        "object",
				Description: "rename the kind, uid, category or schema columns",
			},
			"timeout": {
				Type:        "duration",
				Description: "per-query timeout",
			},
		},
		Required: []string{"driver", "dsn"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("sql", &Factory{})
}
