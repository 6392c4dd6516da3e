package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

type Config struct {
	Log     LoggingConfig `yaml:"log" toml:"log"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

type StoreConfig struct {
	Key        string         `yaml:"key" toml:"key"`
	Backend    string         `yaml:"backend" toml:"backend"`
	Codec      string         `yaml:"codec" toml:"codec"`
	StrictLoad bool           `yaml:"strict_load" toml:"strict_load"`
	SQLitePath string         `yaml:"sqlite_path" toml:"sqlite_path"`
	Dir        string         `yaml:"dir" toml:"dir"`
	Postgres   PostgresConfig `yaml:"postgres" toml:"postgres"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" toml:"dsn"`
	Schema          string        `yaml:"schema" toml:"schema"`
	Table           string        `yaml:"table" toml:"table"`
	MaxOpenConns    int           `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Address string `yaml:"address" toml:"address"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a YAML (.yaml/.yml) or TOML (.toml) file, then applies defaults,
// environment overrides and validation.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Store.Key == "" {
		cfg.Store.Key = "statebag"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendSQLite
	}
	if cfg.Store.Codec == "" {
		cfg.Store.Codec = CodecJSON
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "data/statebag.db"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "data/state"
	}
	if cfg.Store.Postgres.Schema == "" {
		cfg.Store.Postgres.Schema = "public"
	}
	if cfg.Store.Postgres.Table == "" {
		cfg.Store.Postgres.Table = "statebag_kv"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STATEBAG_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("STATEBAG_STORE_KEY")); v != "" {
		cfg.Store.Key = v
	}
	if v := strings.TrimSpace(os.Getenv("STATEBAG_BACKEND")); v != "" {
		cfg.Store.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("STATEBAG_POSTGRES_DSN")); v != "" {
		cfg.Store.Postgres.DSN = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Store.Key) == "" {
		return errors.New("store.key is required")
	}
	switch cfg.Store.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendPostgres:
		if strings.TrimSpace(cfg.Store.Postgres.DSN) == "" {
			return errors.New("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not supported", cfg.Store.Backend)
	}
	switch cfg.Store.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("store.codec %q is not supported", cfg.Store.Codec)
	}
	if cfg.Store.Postgres.MaxOpenConns < 0 || cfg.Store.Postgres.MaxIdleConns < 0 {
		return errors.New("store.postgres connection limits must be >= 0")
	}
	if cfg.Store.Postgres.ConnMaxLifetime < 0 {
		return errors.New("store.postgres.conn_max_lifetime must be >= 0")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
