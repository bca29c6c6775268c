// Package config holds Cadabra's runtime configuration: the HTTP
// server, the Badger data directory, logging, CORS and the LRU front
// cache capacity (§6).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
	Cache    CacheConfig    `json:"cache"`
	CORS     CORSConfig     `json:"cors"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig is the Badger-backed cache store's data directory.
type DatabaseConfig struct {
	DataDir  string `json:"data_dir"`
	InMemory bool   `json:"in_memory"`
}

// LogConfig holds the log level and format settings. The module logs
// through the standard log package and does not read these fields.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or text
}

// CacheConfig controls the in-process LRU front cache.
type CacheConfig struct {
	LRUCapacity int `json:"lru_capacity"`
}

// CORSConfig toggles permissive CORS on the HTTP façade.
type CORSConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns Cadabra's baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			DataDir:  "./cadabra-data",
			InMemory: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			LRUCapacity: 1000,
		},
		CORS: CORSConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to
// DefaultConfig when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse failed: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries CADABRA_CONFIG and a short list of
// conventional paths, then applies environment overrides (§6:
// PORT, HOST, LOG_LEVEL, CORS_ENABLED), falling back to defaults.
func LoadConfigOrDefault() *Config {
	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/cadabra/config.json",
	}

	var cfg *Config
	if envPath := os.Getenv("CADABRA_CONFIG"); envPath != "" {
		if loaded, err := LoadConfig(envPath); err == nil {
			cfg = loaded
		}
	}
	if cfg == nil {
		for _, path := range possiblePaths {
			absPath, err := filepath.Abs(path)
			if err != nil {
				continue
			}
			if loaded, err := LoadConfig(absPath); err == nil {
				cfg = loaded
				break
			}
		}
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides mutates cfg in place from PORT, HOST, LOG_LEVEL
// and CORS_ENABLED, the four environment variables §6 names, which
// override the config-file values. CLI flags are applied after this by
// cmd/cadabra and take precedence over them.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CORS_ENABLED"); v != "" {
		cfg.CORS.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port: %d", cfg.Server.Port)
	}
	if cfg.Cache.LRUCapacity < 1 {
		return fmt.Errorf("config: lru capacity must be positive")
	}
	return nil
}

// ListenAddress returns the "host:port" string for http.Server.Addr.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
