package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Catalog maps logical table names to stores.
type Catalog struct {
	tables map[string]Store
}

// NewCatalog wraps an existing set of stores.
func NewCatalog(tables map[string]Store) *Catalog {
	return &Catalog{tables: tables}
}

// Table returns the store for a logical table name.
func (c *Catalog) Table(name string) (Store, error) {
	s, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return s, nil
}

// Names returns the logical table names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds a Catalog from configuration. The dynamodb backend resolves
// credentials through the default AWS chain.
func Open(ctx context.Context, cfg *Config) (*Catalog, error) {
	tables := make(map[string]Store, len(cfg.Tables))

	switch cfg.Backend {
	case "", BackendMemory:
		for name, t := range cfg.Tables {
			tables[name] = NewMemoryStore(t)
		}

	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: file backend requires a path", ErrUnknownBackend)
		}
		for name, t := range cfg.Tables {
			tables[name] = NewFileStore(filepath.Join(cfg.Path, t.Name), t)
		}

	case BackendDynamoDB:
		client, err := newDynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		for name, t := range cfg.Tables {
			tables[name] = NewDynamoStore(client, t)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}

	if cfg.Cache && cfg.Backend != BackendMemory && cfg.Backend != "" {
		for name, s := range tables {
			tables[name] = NewCache(cfg.Tables[name], s)
		}
	}

	return NewCatalog(tables), nil
}

func newDynamoClient(ctx context.Context, cfg *Config) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
