package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Env variable names that override the file-based configuration.
const (
	EnvDatabasePath = "BANKD_DATABASE_PATH"
	EnvListenAddr   = "BANKD_LISTEN_ADDR"
	EnvAPIKey       = "BANKD_API_KEY"
)

// Config represents the top-level bankd.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig locates the SQLite ledger file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// PoolSize is the connection pool size; zero means the default.
	PoolSize int `yaml:"pool_size,omitempty"`
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// APIKey, when set, is required in the X-API-Key header on /v1/
	// routes. Prefer the BANKD_API_KEY environment variable over
	// committing a key to the file.
	APIKey string `yaml:"api_key,omitempty"`
}

// Load reads a bankd.yaml file from disk and applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "banking.db",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// FromEnv returns the default configuration with environment
// overrides applied, for running without a bankd.yaml file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Server.APIKey = v
	}
}
