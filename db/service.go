package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed schema.sql schema_postgres.sql
var schemaFS embed.FS

// Service represents the database service with connection management
type Service struct {
	DB     *sql.DB
	Driver string
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Driver string
	// DSN is the file path for sqlite3 and a connection URL for pgx.
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	AutoInitialize bool // create the schema when the damage table is missing
	Logger         zerolog.Logger
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:         DriverSQLite,
		DSN:            "./db/damage.db",
		MaxOpenConns:   1, // SQLite doesn't handle concurrent writes well
		MaxIdleConns:   1,
		AutoInitialize: true,
		Logger:         zerolog.Nop(),
	}
}

// New opens the database and, when configured to, creates the schema.
func New(ctx context.Context, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(config.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(0)

	service := &Service{
		DB:     db,
		Driver: config.Driver,
		logger: config.Logger.With().Str("component", "db").Logger(),
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.AutoInitialize {
		if err := service.VerifySchema(ctx); err != nil {
			service.logger.Info().Err(err).Msg("initializing schema")
			if err := service.InitializeSchema(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to initialize schema: %w", err)
			}
		}
	}

	service.logger.Info().Str("driver", config.Driver).Msg("database service initialized")
	return service, nil
}

// InitializeSchema executes the embedded schema for the configured driver.
func (s *Service) InitializeSchema(ctx context.Context) error {
	name := "schema.sql"
	if s.Driver == DriverPostgres {
		name = "schema_postgres.sql"
	}
	schemaSQL, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// VerifySchema checks that every required table exists.
func (s *Service) VerifySchema(ctx context.Context) error {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	if s.Driver == DriverPostgres {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}

	for _, table := range []string{"damage"} {
		var exists int
		if err := s.DB.QueryRowContext(ctx, s.Rebind(query), table).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if exists == 0 {
			return fmt.Errorf("required table missing: %s", table)
		}
	}
	return nil
}

// Rebind rewrites ? placeholders to $n for drivers that need it.
func (s *Service) Rebind(query string) string {
	if s.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.DB != nil {
		s.logger.Info().Msg("closing database connection")
		return s.DB.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func (s *Service) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Health checks the database connection health
func (s *Service) Health(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.DB.PingContext(ctx)
}

// GetStats returns database connection statistics
func (s *Service) GetStats() sql.DBStats {
	return s.DB.Stats()
}
