package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intake.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesOnlyDefinedKeys(t *testing.T) {
	path := writeFile(t, `
log_level = "debug"

[db]
driver = "pgx"
dsn = "postgres://localhost/damage?sslmode=disable"

[nats]
port = 4333
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/damage?sslmode=disable", cfg.DB.DSN)
	assert.Equal(t, "./db/damage.db", cfg.DB.Path)
	assert.Equal(t, 4333, cfg.NATS.Port)
	assert.Equal(t, "./data/nats", cfg.NATS.DataDir)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "port = \"9000\"\n")
	t.Setenv("PORT", "9100")
	t.Setenv("DAMAGE_DB_PATH", "/tmp/reports.db")
	t.Setenv("DAMAGE_NATS_PORT", "-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "/tmp/reports.db", cfg.DB.Path)
	assert.Equal(t, -1, cfg.NATS.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "port = [\n"))
	assert.Error(t, err)

	t.Setenv("DAMAGE_NATS_PORT", "four")
	_, err = Load("")
	assert.ErrorContains(t, err, "DAMAGE_NATS_PORT")
}

func TestApplyEnv_IgnoresBlankValues(t *testing.T) {
	cfg := Default()
	env := map[string]string{"PORT": "  ", "DAMAGE_LOG_LEVEL": " warn "}
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.DB.Path = "" }, wantErr: true},
		{name: "pgx without dsn", mutate: func(c *Config) { c.DB.Driver = DriverPostgres }, wantErr: true},
		{name: "pgx with dsn", mutate: func(c *Config) {
			c.DB.Driver = DriverPostgres
			c.DB.DSN = "postgres://localhost/damage"
		}},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, wantErr: true},
		{name: "random nats port", mutate: func(c *Config) { c.NATS.Port = -1 }},
		{name: "nats port too high", mutate: func(c *Config) { c.NATS.Port = 70000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
