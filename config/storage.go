package config

import (
	"fmt"
	"strings"
)

// StorageBackend selects where policy state lives.
type StorageBackend string

const (
	// BackendMemory keeps everything in process memory (dev and tests).
	BackendMemory StorageBackend = "memory"
	// BackendBadger persists to an embedded Badger database.
	BackendBadger StorageBackend = "badger"
	// BackendRedis stores policy state in Redis.
	BackendRedis StorageBackend = "redis"
	// BackendPostgres stores policies relationally, for multi-node
	// deployments that need a shared watermark.
	BackendPostgres StorageBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "badger", "redis", "postgres":
		*b = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: memory, badger, redis, postgres)", v)
	}
}

// StorageConfig selects the policy and session backends.
type StorageConfig struct {
	// Policies selects the policy store backend.
	Policies StorageBackend `env:"POLICY_BACKEND" envDefault:"badger"`

	// SessionsInRedis moves session records to Redis; otherwise they are
	// held in process memory.
	SessionsInRedis bool `env:"SESSIONS_IN_REDIS" envDefault:"false"`
}

// DBConfig contains PostgreSQL configuration (POLICY_BACKEND=postgres).
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"filegate"`
	Password string `env:"PASSWORD" envDefault:"filegate"`
	Name     string `env:"NAME"     envDefault:"filegate"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether migrations apply during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN builds a postgres connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// BadgerConfig contains embedded database configuration
// (POLICY_BACKEND=badger).
type BadgerConfig struct {
	Dir      string `env:"DIR"       envDefault:"data/filegate"`
	InMemory bool   `env:"IN_MEMORY" envDefault:"false"`
}
