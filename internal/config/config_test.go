package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://api.wahaj.codes:8443/v2/api", c.ServerURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "securevault.db", c.StoragePath)
	assert.Equal(t, "secureVault_", c.StoragePrefix)
	assert.True(t, c.Encrypt)
	assert.Equal(t, "Uncategorized", c.DefaultCategory)
	assert.Equal(t, 16, c.PasswordLength)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "https://api.wahaj.codes:8443/v2/api", cfg.ServerURL)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}
