// Package config holds the application configuration, loaded from
// environment variables via github.com/caarlos0/env. See the individual
// files for the available variables:
//   - auth.go: identity and login configuration
//   - storage.go: policy and session storage backends
//   - http.go: HTTP server configuration
package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct.
type AppConfig struct {
	// IsDev controls development mode behavior.
	IsDev bool `env:"DEV" envDefault:"false"`

	// FilesRoot is the hidden directory gated files are served from.
	FilesRoot string `env:"FILES_ROOT,required"`

	// ServerSecrets are the host secrets the credential key is derived
	// from. Losing or changing them invalidates stored policy passwords.
	ServerSecrets []string `env:"SERVER_SECRETS" envSeparator:";"`

	// Auth groups identity configuration.
	Auth AuthConfig

	// Storage selects and configures the policy and session backends.
	Storage  StorageConfig
	Postgres DBConfig     `envPrefix:"DB_"`
	Redis    RedisConfig  `envPrefix:"REDIS_"`
	Badger   BadgerConfig `envPrefix:"BADGER_"`

	// HTTP server configuration.
	HTTP HTTPConfig

	// GateSessionTimeout bounds how long a verified gate session stays
	// valid. The gate clamps it into [1m, 24h]; zero means the default 30m.
	GateSessionTimeout time.Duration `env:"GATE_SESSION_TIMEOUT" envDefault:"30m"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after env parsing.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.detectDevMode()
}

// Validate rejects configurations the server cannot safely start with.
func (c *AppConfig) Validate() error {
	if c.FilesRoot == "" {
		return errors.New("FILES_ROOT is required")
	}
	if c.Auth.Mode == AuthModeOAuth && c.Auth.OAuth.DiscoveryURL == "" {
		return errors.New("OAUTH_DISCOVERY_URL is required when AUTH_MODE=oauth")
	}
	return nil
}

// detectDevMode checks NODE_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
