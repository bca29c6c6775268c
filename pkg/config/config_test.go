package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./cadabra-data", cfg.Database.DataDir)
	assert.False(t, cfg.Database.InMemory)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 1000, cfg.Cache.LRUCapacity)
	assert.False(t, cfg.CORS.Enabled)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	cfg, err := LoadConfig("non_existent_config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{invalid json"), 0644))

	cfg, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	data, _ := json.Marshal(map[string]interface{}{
		"server": map[string]interface{}{"port": 70000},
	})
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigInvalidLRUCapacity(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	data, _ := json.Marshal(map[string]interface{}{
		"cache": map[string]interface{}{"lru_capacity": 0},
	})
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	data, _ := json.Marshal(map[string]interface{}{
		"server": map[string]interface{}{"host": "127.0.0.1", "port": 5432},
	})
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg, err := LoadConfig(configPath)
	assert.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5432, cfg.Server.Port)
	// Untouched fields keep their default.
	assert.Equal(t, "./cadabra-data", cfg.Database.DataDir)
}

func TestLoadConfigOrDefaultWithEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")
	data, _ := json.Marshal(map[string]interface{}{
		"server": map[string]interface{}{"port": 8088},
	})
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	oldEnv := os.Getenv("CADABRA_CONFIG")
	t.Cleanup(func() { os.Setenv("CADABRA_CONFIG", oldEnv) })
	os.Setenv("CADABRA_CONFIG", configPath)

	cfg := LoadConfigOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, 8088, cfg.Server.Port)
}

func TestLoadConfigOrDefaultNoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	cfg := LoadConfigOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigOrDefaultEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	for k, v := range map[string]string{
		"HOST":         "127.0.0.1",
		"PORT":         "9999",
		"LOG_LEVEL":    "debug",
		"CORS_ENABLED": "true",
	} {
		old := os.Getenv(k)
		key := k
		oldVal := old
		os.Setenv(k, v)
		t.Cleanup(func() { os.Setenv(key, oldVal) })
	}

	cfg := LoadConfigOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.CORS.Enabled)
}

func TestListenAddress(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		expected string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 8080, "127.0.0.1:8080"},
		{"localhost", 5432, "localhost:5432"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{Host: tt.host, Port: tt.port}}
			assert.Equal(t, tt.expected, cfg.ListenAddress())
		})
	}
}

func TestConfigRoundTripsThroughJSON(t *testing.T) {
	cfg := DefaultConfig()

	data, err := json.Marshal(cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	var parsed Config
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, cfg.Server.Port, parsed.Server.Port)
	assert.Equal(t, cfg.Server.Host, parsed.Server.Host)
}
