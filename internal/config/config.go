// Package config loads settings from a YAML file and QUERYCACHE_* environment
// variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"go-query-cache/internal/logging"
	"go-query-cache/internal/source"
	"go-query-cache/pkg/utils"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "QUERYCACHE_"

// Config is the full application configuration.
type Config struct {
	DataDir   string         `yaml:"data_dir" env:"DATA_DIR"`
	HistoryDB string         `yaml:"history_db" env:"HISTORY_DB"`
	Timeout   string         `yaml:"timeout" env:"TIMEOUT"`
	Source    source.Config  `yaml:"source" envPrefix:"SOURCE_"`
	Log       logging.Config `yaml:"log" envPrefix:"LOG_"`
	API       APIConfig      `yaml:"api" envPrefix:"API_"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:   "data",
		HistoryDB: "querycache.db",
		Timeout:   utils.DefaultTimeout.String(),
		Source:    source.Config{Type: "sqlite"},
		Log:       logging.Config{Level: "info", Format: logging.FormatConsole},
		API:       APIConfig{Addr: ":8080"},
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides. A missing file is an error only when path was given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to run fetches.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if strings.TrimSpace(c.HistoryDB) == "" {
		errs = append(errs, errors.New("history_db is required"))
	}
	if _, err := time.ParseDuration(c.Timeout); c.Timeout != "" && err != nil {
		errs = append(errs, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if err := c.Source.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// QueryTimeout is the per-fetch deadline.
func (c Config) QueryTimeout() time.Duration {
	return utils.ParseDuration(c.Timeout)
}

// HistoryPath resolves the history database path. Relative paths live
// under the data directory; ":memory:" is kept as-is.
func (c Config) HistoryPath() string {
	if c.HistoryDB == ":memory:" || filepath.IsAbs(c.HistoryDB) {
		return c.HistoryDB
	}
	return filepath.Join(c.DataDir, c.HistoryDB)
}
