// Package s3 provides a catalog source that reads one JSON object per
// catalog kind from an S3 bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

const defaultMaxObjectBytes = 32 << 20

// Config holds S3 source configuration
type Config struct {
	Region          string `json:"region" yaml:"region"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	ComponentsKey   string `json:"components_key" yaml:"components_key"`
	ContentTypesKey string `json:"content_types_key" yaml:"content_types_key"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style"`
	AccessKey       string `json:"access_key" yaml:"access_key"`
	SecretKey       string `json:"secret_key" yaml:"secret_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
	MaxObjectBytes  int64  `json:"max_object_bytes" yaml:"max_object_bytes"`
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads catalogs from S3 objects
type Source struct {
	config *Config
	client objectGetter
}

// NewSource loads the AWS configuration and creates the S3 client
func NewSource(ctx context.Context, cfg *Config) (*Source, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		options.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newSource(cfg, client), nil
}

func newSource(cfg *Config, client objectGetter) *Source {
	if cfg.MaxObjectBytes == 0 {
		cfg.MaxObjectBytes = defaultMaxObjectBytes
	}
	return &Source{config: cfg, client: client}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if cfg.MaxObjectBytes < 0 {
		return fmt.Errorf("max_object_bytes must not be negative")
	}
	return nil
}

// ObjectKey returns the key of the object holding the records of kind
func (s *Source) ObjectKey(kind schema.Kind) string {
	switch {
	case kind == schema.KindComponent && s.config.ComponentsKey != "":
		return s.config.ComponentsKey
	case kind == schema.KindContentType && s.config.ContentTypesKey != "":
		return s.config.ContentTypesKey
	}
	prefix := s.config.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + kind.Endpoint() + ".json"
}

// FetchCatalog downloads and decodes the object for kind
func (s *Source) FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownKind, kind)
	}
	key := s.ObjectKey(kind)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	defer resp.Body.Close()

	payload, err := readAll(resp.Body, s.config.MaxObjectBytes)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	records, err := adapters.DecodeRecords(payload)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	return records, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (s *Source) Close() error {
	return nil
}

func readAll(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("object exceeds max_object_bytes")
	}
	return data, nil
}

// Factory creates S3 sources
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
		Description: "catalog JSON objects in an S3 bucket",
		Properties: map[string]adapters.ConfigProperty{
			"region":            {Type: "string", Description: "AWS region"},
			"bucket":            {Type: "string", Description: "bucket name"},
			"prefix":            {Type: "string", Description: "key prefix of components.json and content-types.json"},
			"components_key":    {Type: "string", Description: "explicit key of the components object"},
			"content_types_key": {Type: "string", Description: "explicit key of the content-types object"},
			"endpoint":          {Type: "string", Description: "custom endpoint (MinIO, LocalStack)"},
			"force_path_style":  {Type: "bool", Description: "use path-style addressing", Default: false},
			"access_key":        {Type: "string", Description: "static access key"},
			"secret_key":        {Type: "string", Description: "static secret key"},
			"session_token":     {Type: "string", Description: "static session token"},
			"max_object_bytes":  {Type: "int", Description: "largest object accepted", Default: defaultMaxObjectBytes},
		},
		Required: []string{"bucket", "region"},
	}
}

func init() {
	_ = adapters.RegisterCatalogSource("s3", &Factory{})
}
