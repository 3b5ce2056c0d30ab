// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Postgres struct {
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE" envDefault:"themind"`
}

// DSN builds a postgres:// connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	return u.String()
}

// Redis is optional; an empty address disables the action queue.
type Redis struct {
	Addr  string `env:"REDIS_ADDR"`
	DB    int    `env:"REDIS_DB" envDefault:"0"`
	Queue string `env:"HISTORIAN_QUEUE_NAME" envDefault:"themind_actions"`
}

type Historian struct {
	BatchSize         int `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushMs           int `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	InactivityTimeout int `env:"SESSION_INACTIVITY_TIMEOUT_SEC" envDefault:"600"`
}

func (h Historian) FlushInterval() time.Duration {
	return time.Duration(h.FlushMs) * time.Millisecond
}

func (h Historian) Inactivity() time.Duration {
	return time.Duration(h.InactivityTimeout) * time.Second
}

// Config is the full service configuration.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	// TokenExpire is a Go duration, or "never"/"0" for tokens without expiry.
	TokenExpire string `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`

	// JWTPublicKeyPath points at the auth service's ed25519 verification key.
	// JWTPrivateKeyPath is only needed by processes that also issue tokens.
	JWTPublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`
	JWTPrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`

	Postgres  Postgres
	Redis     Redis
	Historian Historian
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Historian.BatchSize <= 0 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if c.JWTPrivateKeyPath != "" && c.JWTPublicKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH requires JWT_PUBLIC_KEY_PATH")
	}
	return nil
}

// TokenTTL returns the JWT lifetime, 0 meaning no expiry.
func (c Config) TokenTTL() (time.Duration, error) {
	switch c.TokenExpire {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpire)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}
