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
	assert.Equal(t, "0.0.0.0", cfg.App.Host)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 300, cfg.Relay.DebounceWindowMS)
	assert.Equal(t, 5, cfg.Relay.AckDeleteSeconds)
	assert.Equal(t, 100, cfg.Relay.QueueSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().App.Port, cfg.App.Port)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"app": {"host": "127.0.0.1", "port": 9090},
		"webhook": {"domain": "https://relay.example.com"},
		"admin": {"token": "1:AA", "owner_id": 42},
		"relay": {"debounce_window_ms": 500, "queue_size": 10, "ack_delete_seconds": 3, "tenant_cache_ttl_seconds": 60}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.App.Host)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "https://relay.example.com", cfg.Webhook.Domain)
	assert.Equal(t, int64(42), cfg.Admin.OwnerID)
	assert.Equal(t, 500, cfg.Relay.DebounceWindowMS)
	assert.Equal(t, 10, cfg.Relay.QueueSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app": {"port": 9090}}`), 0o600))

	t.Setenv("TOPICRELAY_APP_PORT", "7070")
	t.Setenv("TOPICRELAY_RELAY_SLIDING_WINDOW", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.App.Port)
	assert.True(t, cfg.Relay.SlidingWindow)
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.DebounceWindowMS = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Relay.QueueSize = 0
	assert.Error(t, cfg.Validate())
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.App.Port = 4242

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, loaded.App.Port)
}
