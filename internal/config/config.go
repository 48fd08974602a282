// Package config assembles service configuration from the environment with
// a Vault secret overlay. Environment variables set the baseline so local
// and test runs need no Vault; secrets loaded from a KV v2 path override
// the connection strings when present.
package config

import (
	"fmt"
	"os"
)

// Config carries the settings shared by the fabric's services. Fields left
// empty by both the environment and Vault keep their defaults; the only
// hard requirement is the Pub/Sub project id.
type Config struct {
	ServiceName string

	ProjectID    string // PUBSUB_PROJECT_ID
	PostgresURL  string // PG_URL
	RedisAddr    string // REDIS_ADDR
	VespaURL     string // VESPA_URL
	HTTPAddr     string // HTTP_ADDR
	OtelEndpoint string // OTEL_EXPORTER_OTLP_ENDPOINT

	VaultAddr       string
	VaultToken      string
	VaultSecretPath string
}

// Load reads the baseline configuration for service from the environment.
func Load(service string) (*Config, error) {
	cfg := &Config{
		ServiceName:     service,
		ProjectID:       os.Getenv("PUBSUB_PROJECT_ID"),
		PostgresURL:     os.Getenv("PG_URL"),
		RedisAddr:       getenvDefault("REDIS_ADDR", "localhost:6379"),
		VespaURL:        getenvDefault("VESPA_URL", "http://localhost:8080"),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8081"),
		OtelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		VaultAddr:       getenvDefault("VAULT_ADDR", "http://localhost:8200"),
		VaultToken:      getenvDefault("VAULT_TOKEN", "root"),
		VaultSecretPath: getenvDefault("VAULT_SECRET_PATH", "secret/data/fabric/"+service),
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config: PUBSUB_PROJECT_ID is required")
	}
	return cfg, nil
}

// LoadSecrets overlays the KV v2 secrets at the configured path onto the
// connection strings. A missing path is not fatal; callers running against
// local infrastructure rely on the env baseline.
func (c *Config) LoadSecrets(sm *SecretManager) error {
	secrets, err := sm.GetKV2(c.VaultSecretPath)
	if err != nil {
		return err
	}
	c.Overlay(secrets)
	return nil
}

// Overlay applies a secret map onto the config. Only known keys with
// non-empty string values take effect.
func (c *Config) Overlay(secrets map[string]interface{}) {
	overlayString(secrets, "PG_URL", &c.PostgresURL)
	overlayString(secrets, "REDIS_ADDR", &c.RedisAddr)
	overlayString(secrets, "VESPA_URL", &c.VespaURL)
}

func overlayString(m map[string]interface{}, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
