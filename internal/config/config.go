// Package config loads gateway configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment variables.
type Config struct {
	// Mode selects the runtime mode: "api" or "worker".
	Mode string `env:"GATEWAY_MODE" envDefault:"api"`

	// Server
	Host string `env:"GATEWAY_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"GATEWAY_PORT" envDefault:"8080"`

	// Authentication
	JWTSecret string `env:"JWT_SECRET" envDefault:"development-secret-change-in-production-32b"`

	// Content crypto
	EncryptionKey        string `env:"ENCRYPTION_KEY" envDefault:"development-master-key-change-me"`
	CryptoDegradeAllowed bool   `env:"CRYPTO_DEGRADE_ALLOWED" envDefault:"false"`

	// Audit log
	AuditStoragePath string `env:"AUDIT_STORAGE_PATH" envDefault:"./audit-log"`

	// Collaborator URLs for out-of-process deployments. This binary runs
	// crypto/audit/queue in-process and does not dial these itself; they are
	// loaded into Config and nothing else in the process reads them.
	CryptoServiceURL string `env:"CRYPTO_SERVICE_URL"`
	AuditServiceURL  string `env:"AUDIT_SERVICE_URL"`
	StoreForwardURL  string `env:"STORE_FORWARD_URL"`

	// Queue backing store.
	QueueStoreURL string `env:"QUEUE_STORE_URL" envDefault:"redis://localhost:6379/0"`

	// Connected node registry seed (comma-separated node IDs), so the
	// hard-coded placeholder registry can be seeded without a code change.
	ConnectedNodes []string `env:"CONNECTED_NODES" envDefault:"NODE-ALPHA,NODE-BRAVO" envSeparator:","`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Drain worker tick interval.
	DrainInterval string `env:"DRAIN_INTERVAL" envDefault:"2s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
