// Package common provides configuration and logging shared by the fundfolio binaries
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Storage drivers accepted in [storage].driver
const (
	StorageDriverPostgres = "postgres"
	StorageDriverBadger   = "badger"
	StorageDriverMemory   = "memory"
)

// Config holds all configuration for fundfolio
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Refresh     RefreshConfig `toml:"refresh"`
	Catalog     CatalogConfig `toml:"catalog"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Address returns the host:port listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects and configures the catalog/ledger backend
type StorageConfig struct {
	Driver   string         `toml:"driver"` // postgres, badger or memory
	Postgres PostgresConfig `toml:"postgres"`
	Badger   BadgerConfig   `toml:"badger"`
}

// PostgresConfig holds the PostgreSQL connection settings
type PostgresConfig struct {
	DSN        string `toml:"dsn"`
	Migrate    bool   `toml:"migrate"`     // create tables on startup
	ConnectTry int    `toml:"connect_try"` // ping attempts before giving up
}

// BadgerConfig holds the embedded store settings
type BadgerConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	RapidAPI RapidAPIConfig `toml:"rapidapi"`
}

// RapidAPIConfig holds the fund data provider configuration.
// URL, Host and APIKey are required; calls fail fast without them.
type RapidAPIConfig struct {
	URL        string `toml:"url"`
	Host       string `toml:"host"`
	APIKey     string `toml:"api_key"`
	FundFamily string `toml:"fund_family"`
	SchemeType string `toml:"scheme_type"`
	Timeout    string `toml:"timeout"`
	RateLimit  int    `toml:"rate_limit"`
	CacheTTL   string `toml:"cache_ttl"`

	// JSONPath expressions locating fields inside one provider record
	CodePath string `toml:"code_path"`
	NamePath string `toml:"name_path"`
	NAVPath  string `toml:"nav_path"`
}

// GetTimeout parses and returns the per-call timeout
func (c *RapidAPIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetCacheTTL parses and returns the bulk listing cache TTL
func (c *RapidAPIConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Configured reports whether the required credentials are present
func (c *RapidAPIConfig) Configured() bool {
	return c.URL != "" && c.Host != "" && c.APIKey != ""
}

// RefreshConfig holds the scheduled NAV refresh settings
type RefreshConfig struct {
	Enabled     bool   `toml:"enabled"`
	Schedule    string `toml:"schedule"` // standard 5-field cron expression
	Concurrency int    `toml:"concurrency"`
}

// CatalogConfig lists scheme codes imported into the catalog at startup
type CatalogConfig struct {
	SeedCodes []string `toml:"seed_codes"`
}

// AuthConfig holds the shared token checked at the gRPC boundary
type AuthConfig struct {
	APIToken string `toml:"api_token"`

	// OwnerTokenSecret signs owner identity tokens; empty trusts the x-owner-id header
	OwnerTokenSecret string `toml:"owner_token_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver: StorageDriverPostgres,
			Postgres: PostgresConfig{
				DSN:        "host=localhost port=5432 user=postgres password=postgres dbname=fundfolio sslmode=disable",
				Migrate:    true,
				ConnectTry: 5,
			},
			Badger: BadgerConfig{Path: "data/fundfolio"},
		},
		Clients: ClientsConfig{
			RapidAPI: RapidAPIConfig{
				FundFamily: "Axis Mutual Fund",
				SchemeType: "Open",
				Timeout:    "10s",
				RateLimit:  5,
				CacheTTL:   "1h",
				CodePath:   "$.Scheme_Code",
				NamePath:   "$.Scheme_Name",
				NAVPath:    "$.Net_Asset_Value",
			},
		},
		Refresh: RefreshConfig{
			Enabled:     false,
			Schedule:    "0 20 * * *",
			Concurrency: 1,
		},
		Auth: AuthConfig{
			APIToken: "dev-token",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Outputs:  []string{"console"},
			FilePath: "./logs/fundfolio.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FUNDFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FUNDFOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FUNDFOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FUNDFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if driver := os.Getenv("FUNDFOLIO_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = strings.ToLower(driver)
	}

	if dsn := os.Getenv("DB_CONN_STR"); dsn != "" {
		config.Storage.Postgres.DSN = dsn
	}

	if path := os.Getenv("FUNDFOLIO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if v := os.Getenv("RAPID_API_URL"); v != "" {
		config.Clients.RapidAPI.URL = v
	}
	if v := os.Getenv("RAPID_API_HOST"); v != "" {
		config.Clients.RapidAPI.Host = v
	}
	if v := os.Getenv("RAPID_API_KEY"); v != "" {
		config.Clients.RapidAPI.APIKey = v
	}

	if token := os.Getenv("API_TOKEN"); token != "" {
		config.Auth.APIToken = token
	}

	if secret := os.Getenv("FUNDFOLIO_OWNER_TOKEN_SECRET"); secret != "" {
		config.Auth.OwnerTokenSecret = secret
	}

	if codes := os.Getenv("FUNDFOLIO_SEED_CODES"); codes != "" {
		config.Catalog.SeedCodes = strings.Split(codes, ",")
	}

	if schedule := os.Getenv("FUNDFOLIO_REFRESH_SCHEDULE"); schedule != "" {
		config.Refresh.Schedule = schedule
		config.Refresh.Enabled = true
	}
}

// Validate checks storage and schedule settings.
// Provider credentials are checked by the provider client on each call.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverBadger, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Refresh.Enabled {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh.Schedule, err)
		}
	}

	if c.Refresh.Concurrency < 1 {
		c.Refresh.Concurrency = 1
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
