package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	App     AppConfig     `json:"app"`
	Webhook WebhookConfig `json:"webhook"`
	Admin   AdminConfig   `json:"admin"`
	Storage StorageConfig `json:"storage"`
	Relay   RelayConfig   `json:"relay"`
}

type AppConfig struct {
	Host string `env:"TOPICRELAY_APP_HOST" json:"host"`
	Port int    `env:"TOPICRELAY_APP_PORT" json:"port"`
}

// WebhookConfig describes the externally reachable webhook surface.
// Domain is the public base URL Telegram delivers updates to; the
// admin and per-tenant paths are fixed route templates under it.
type WebhookConfig struct {
	Domain string `env:"TOPICRELAY_WEBHOOK_DOMAIN" json:"domain"`
}

type AdminConfig struct {
	Token   string `env:"TOPICRELAY_ADMIN_TOKEN"    json:"token"`
	OwnerID int64  `env:"TOPICRELAY_ADMIN_OWNER_ID" json:"owner_id"`
}

type StorageConfig struct {
	Path string `env:"TOPICRELAY_STORAGE_PATH" json:"path"`
}

type RelayConfig struct {
	// DebounceWindowMS is how long the aggregation gate buffers album
	// parts before flushing them as one batch.
	DebounceWindowMS int  `env:"TOPICRELAY_RELAY_DEBOUNCE_WINDOW_MS" json:"debounce_window_ms"`
	SlidingWindow    bool `env:"TOPICRELAY_RELAY_SLIDING_WINDOW"     json:"sliding_window"`
	// AckDeleteSeconds is how long cosmetic acknowledgements stay
	// visible before the timed delete fires.
	AckDeleteSeconds int `env:"TOPICRELAY_RELAY_ACK_DELETE_SECONDS" json:"ack_delete_seconds"`
	// TenantCacheTTLSeconds bounds how long a resolved tenant identity
	// is reused before the directory is consulted again.
	TenantCacheTTLSeconds int `env:"TOPICRELAY_RELAY_TENANT_CACHE_TTL_SECONDS" json:"tenant_cache_ttl_seconds"`
	QueueSize             int `env:"TOPICRELAY_RELAY_QUEUE_SIZE"               json:"queue_size"`
}

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "topicrelay.db",
		},
		Relay: RelayConfig{
			DebounceWindowMS:      300,
			SlidingWindow:         false,
			AckDeleteSeconds:      5,
			TenantCacheTTLSeconds: 300,
			QueueSize:             100,
		},
	}
}

// LoadConfig reads the JSON config at path and applies environment
// overrides on top. A missing file is not an error; defaults plus
// environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	if c.Relay.DebounceWindowMS < 0 {
		return errors.New("debounce_window_ms must not be negative")
	}
	if c.Relay.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}
	return nil
}
