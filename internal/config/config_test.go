package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "snappy.db", cfg.DatabaseDSN)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 15, cfg.MinRefreshInterval)
	require.Equal(t, time.Minute, cfg.SchedulerInterval)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	content := `
listen_addr = ":9090"
database_driver = "postgres"
database_dsn = "postgres://localhost/snappy"
min_refresh_interval = 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, "postgres://localhost/snappy", cfg.DatabaseDSN)
	require.Equal(t, 30, cfg.MinRefreshInterval)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`listen_addr = ":9090"`), 0o600))
	t.Setenv("SNAPPY_LISTEN_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.ListenAddr)
}

func TestValidate(t *testing.T) {
	t.Setenv("SNAPPY_DATABASE_DRIVER", "bogus")
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		DatabaseDriver:     "sqlite",
		JWTSecret:          "secret",
		MinRefreshInterval: 15,
		AdLibraryURL:       "https://example.com/gpt.js",
	}
	require.NoError(t, base.Validate())

	c := base
	c.JWTSecret = ""
	require.Error(t, c.Validate())

	c = base
	c.MinRefreshInterval = 0
	require.Error(t, c.Validate())

	c = base
	c.AdLibraryURL = "not a url"
	require.Error(t, c.Validate())
}
