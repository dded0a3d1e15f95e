package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30000, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 1000, cfg.RetryDelay)
	assert.Equal(t, 1, cfg.Parallelism)
	assert.Equal(t, []string{"console"}, cfg.Reporters)
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetNoColor())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiprobe.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"baseURL": "https://api.example.com",
		"timeout": 5000,
		"maxAttempts": 3,
		"parallelism": 4,
		"headers": {"Authorization": "Bearer token"}
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, "Bearer token", cfg.Headers["Authorization"])
	// Untouched fields keep their defaults
	assert.Equal(t, 1000, cfg.RetryDelay)
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
	})

	t.Run("finds dotted config", func(t *testing.T) {
		path := filepath.Join(dir, ".apiprobe.config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"baseURL": "http://localhost:8080"}`), 0644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	})
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig()
	base.BaseURL = "https://base.example.com"
	base.Headers = map[string]string{"Accept": "application/json"}

	f := false
	merged := base.Merge(&Config{
		BaseURL:     "https://override.example.com",
		MaxAttempts: 5,
		Headers:     map[string]string{"Authorization": "Bearer x"},
		ValidateSSL: &f,
	})

	assert.Equal(t, "https://override.example.com", merged.BaseURL)
	assert.Equal(t, 5, merged.MaxAttempts)
	assert.False(t, merged.GetValidateSSL())
	// Header maps merge rather than replace
	assert.Equal(t, "application/json", merged.Headers["Accept"])
	assert.Equal(t, "Bearer x", merged.Headers["Authorization"])
	// Zero-valued overrides leave the base alone
	assert.Equal(t, base.Timeout, merged.Timeout)

	t.Run("nil merge is identity", func(t *testing.T) {
		assert.Equal(t, base, base.Merge(nil))
	})
}
