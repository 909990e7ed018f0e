package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds everything cmd/intake needs to wire the service.
type Config struct {
	Port     string
	LogLevel string
	DB       DBConfig
	NATS     NATSConfig
}

type DBConfig struct {
	Driver string
	Path   string
	DSN    string
}

type NATSConfig struct {
	Port    int
	DataDir string
}

type fileConfig struct {
	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
	DB       struct {
		Driver string `toml:"driver"`
		Path   string `toml:"path"`
		DSN    string `toml:"dsn"`
	} `toml:"db"`
	NATS struct {
		Port    int    `toml:"port"`
		DataDir string `toml:"data_dir"`
	} `toml:"nats"`
}

func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		DB: DBConfig{
			Driver: DriverSQLite,
			Path:   "./db/damage.db",
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "./data/nats",
		},
	}
}

// Load builds a Config from defaults, then the TOML file at path (skipped
// when path is empty), then a .env file in the working directory, then the
// process environment. Later sources win.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		c.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("db", "driver") {
		c.DB.Driver = strings.TrimSpace(raw.DB.Driver)
	}
	if meta.IsDefined("db", "path") {
		c.DB.Path = strings.TrimSpace(raw.DB.Path)
	}
	if meta.IsDefined("db", "dsn") {
		c.DB.DSN = strings.TrimSpace(raw.DB.DSN)
	}
	if meta.IsDefined("nats", "port") {
		c.NATS.Port = raw.NATS.Port
	}
	if meta.IsDefined("nats", "data_dir") {
		c.NATS.DataDir = strings.TrimSpace(raw.NATS.DataDir)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Port)
	str("DAMAGE_LOG_LEVEL", &c.LogLevel)
	str("DAMAGE_DB_DRIVER", &c.DB.Driver)
	str("DAMAGE_DB_PATH", &c.DB.Path)
	str("DAMAGE_DB_DSN", &c.DB.DSN)
	str("DAMAGE_NATS_DATA_DIR", &c.NATS.DataDir)

	if v, ok := lookup("DAMAGE_NATS_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse DAMAGE_NATS_PORT: %w", err)
		}
		c.NATS.Port = port
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("config: db path is required for sqlite3")
		}
	case DriverPostgres:
		if c.DB.DSN == "" {
			return errors.New("config: db dsn is required for pgx")
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DB.Driver)
	}
	if c.NATS.Port < -1 || c.NATS.Port > 65535 {
		return fmt.Errorf("config: nats port %d out of range", c.NATS.Port)
	}
	return nil
}
