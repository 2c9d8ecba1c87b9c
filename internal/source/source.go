// Package source executes queries against remote analytical stores.
package source

import (
	"context"
	"fmt"
	"strings"

	"go-query-cache/internal/model"

	// SQL drivers
	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/jackc/pgx/v5/stdlib" // pgx
	_ "github.com/lib/pq"              // postgres
	_ "github.com/mattn/go-sqlite3"    // sqlite3
)

// Source runs a query and returns its complete result set.
type Source interface {
	Query(ctx context.Context, q model.Query) (*model.Result, error)
	Close() error
}

// Config selects and configures a Source.
type Config struct {
	Type    string            `yaml:"type" env:"TYPE"`         // postgres, pgx, mysql, sqlite, http
	DSN     string            `yaml:"dsn" env:"DSN"`           // database DSN or HTTP endpoint URL
	Headers map[string]string `yaml:"headers" env:"HEADERS"`   // http only
	MaxOpen int               `yaml:"max_open" env:"MAX_OPEN"` // sql only
}

// Types lists the supported source types.
var Types = []string{"postgres", "pgx", "mysql", "sqlite", "http"}

// Validate checks that the type is known and a DSN is present.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("source dsn is required")
	}
	switch strings.ToLower(c.Type) {
	case "postgres", "pgx", "mysql", "sqlite", "sqlite3", "http", "https":
		return nil
	default:
		return fmt.Errorf("unsupported source type: %s (supported: %s)", c.Type, strings.Join(Types, ", "))
	}
}

// New creates a Source from configuration.
func New(ctx context.Context, cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Type) {
	case "http", "https":
		return NewHTTPSource(cfg.DSN, cfg.Headers, nil), nil
	default:
		return OpenSQL(ctx, cfg)
	}
}
