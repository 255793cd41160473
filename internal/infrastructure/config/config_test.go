package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("WAREHANCE_API_KEY", "test-key")
	os.Setenv("DATABASE_PATH", "test.db")
	os.Setenv("SYNC_SCHEDULE", "@hourly")
	defer func() {
		os.Unsetenv("WAREHANCE_API_KEY")
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("SYNC_SCHEDULE")
	}()

	cfg := LoadFromEnv()
	assert.NotNil(t, cfg)
	assert.Equal(t, "test-key", cfg.Warehance.APIKey)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, "@hourly", cfg.Sync.Schedule)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	os.Unsetenv("DATABASE_DRIVER")
	os.Unsetenv("API_PAGE_SIZE")

	cfg := LoadFromEnv()
	assert.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "warehance_returns.db", cfg.Database.Path)
	assert.Equal(t, "https://api.warehance.com/v1", cfg.Warehance.BaseURL)
	assert.Equal(t, 100, cfg.Sync.PageSize)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	os.Setenv("DATABASE_PATH", "fallback.db")
	defer os.Unsetenv("DATABASE_PATH")

	cfg := LoadOrEnvWithPath("nonexistent.yaml")
	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Database.Path)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
warehance:
  api_key: "${TEST_WAREHANCE_KEY}"
database:
  driver: postgres
  url: "${TEST_DATABASE_URL}"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	os.Setenv("TEST_WAREHANCE_KEY", "expanded-key")
	os.Setenv("TEST_DATABASE_URL", "postgres://localhost/returns")
	defer func() {
		os.Unsetenv("TEST_WAREHANCE_KEY")
		os.Unsetenv("TEST_DATABASE_URL")
	}()

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "expanded-key", cfg.Warehance.APIKey)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/returns", cfg.Database.DSN())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "returns.db"}
	assert.Equal(t, "returns.db", sqlite.DSN())

	pg := DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/returns"}
	assert.Equal(t, "postgres://localhost/returns", pg.DSN())
}
