package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "Axis Mutual Fund", cfg.Clients.RapidAPI.FundFamily)
	assert.Equal(t, "Open", cfg.Clients.RapidAPI.SchemeType)
	assert.Equal(t, 10*time.Second, cfg.Clients.RapidAPI.GetTimeout())
	assert.Equal(t, time.Hour, cfg.Clients.RapidAPI.GetCacheTTL())
	assert.False(t, cfg.Clients.RapidAPI.Configured())
}

func TestRapidAPIConfig_DurationFallbacks(t *testing.T) {
	cfg := RapidAPIConfig{Timeout: "not-a-duration", CacheTTL: "-5m"}

	assert.Equal(t, 10*time.Second, cfg.GetTimeout())
	assert.Equal(t, time.Hour, cfg.GetCacheTTL())

	cfg = RapidAPIConfig{Timeout: "3s", CacheTTL: "15m"}
	assert.Equal(t, 3*time.Second, cfg.GetTimeout())
	assert.Equal(t, 15*time.Minute, cfg.GetCacheTTL())
}

func TestConfig_ProviderEnvOverrides(t *testing.T) {
	t.Setenv("RAPID_API_URL", "https://latest-mutual-fund-nav.p.rapidapi.com/latest")
	t.Setenv("RAPID_API_HOST", "latest-mutual-fund-nav.p.rapidapi.com")
	t.Setenv("RAPID_API_KEY", "key-from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "key-from-env", cfg.Clients.RapidAPI.APIKey)
	assert.True(t, cfg.Clients.RapidAPI.Configured())
}

func TestConfig_ServerAndStorageEnvOverrides(t *testing.T) {
	t.Setenv("FUNDFOLIO_PORT", "9090")
	t.Setenv("FUNDFOLIO_STORAGE_DRIVER", "BADGER")
	t.Setenv("DB_CONN_STR", "postgres://example")
	t.Setenv("API_TOKEN", "secret")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageDriverBadger, cfg.Storage.Driver)
	assert.Equal(t, "postgres://example", cfg.Storage.Postgres.DSN)
	assert.Equal(t, "secret", cfg.Auth.APIToken)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
}

func TestLoadConfig_LayersFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "fundfolio.toml")
	local := filepath.Join(dir, "fundfolio.local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[storage]
driver = "memory"

[clients.rapidapi]
url = "https://provider.example/latest"
host = "provider.example"
api_key = "base-key"
timeout = "5s"

[refresh]
enabled = true
schedule = "30 18 * * 1-5"
concurrency = 4
`), 0644))
	require.NoError(t, os.WriteFile(local, []byte(`
[clients.rapidapi]
api_key = "local-key"
`), 0644))

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "local-key", cfg.Clients.RapidAPI.APIKey)
	assert.Equal(t, "provider.example", cfg.Clients.RapidAPI.Host)
	assert.Equal(t, 5*time.Second, cfg.Clients.RapidAPI.GetTimeout())
	assert.Equal(t, "Axis Mutual Fund", cfg.Clients.RapidAPI.FundFamily)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 4, cfg.Refresh.Concurrency)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundfolio.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndriver = \"sqlite\"\n"), 0644))

	_, err := LoadConfig(path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}

func TestLoadConfig_RejectsBadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundfolio.toml")
	require.NoError(t, os.WriteFile(path, []byte("[refresh]\nenabled = true\nschedule = \"every day\"\n"), 0644))

	_, err := LoadConfig(path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh schedule")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundfolio.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage\n"), 0644))

	_, err := LoadConfig(path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_ValidateClampsConcurrency(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Refresh.Concurrency = 0

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Refresh.Concurrency)
}

func TestConfig_SeedCodesFromEnv(t *testing.T) {
	t.Setenv("FUNDFOLIO_SEED_CODES", "120437,119551")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, []string{"120437", "119551"}, cfg.Catalog.SeedCodes)
}

func TestWriteBanner(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Refresh.Enabled = true

	var buf bytes.Buffer
	writeBanner(&buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "FUNDFOLIO")
	assert.Contains(t, out, "0.0.0.0:8080")
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, cfg.Refresh.Schedule)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config", "fundfolio.example.toml"))
	require.NoError(t, err)

	assert.Equal(t, "latest-mutual-fund-nav.p.rapidapi.com", cfg.Clients.RapidAPI.Host)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 4, cfg.Refresh.Concurrency)
	assert.Equal(t, []string{"120437"}, cfg.Catalog.SeedCodes)
	assert.Equal(t, []string{"console", "file"}, cfg.Logging.Outputs)
}
