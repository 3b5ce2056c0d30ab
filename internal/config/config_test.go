package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "REDIS_ADDR", "HISTORIAN_QUEUE_NAME", "TOKEN_EXPIRE_TIME", "PG_PORT", "HISTORIAN_BATCH_SIZE", "JWT_PUBLIC_KEY_PATH", "JWT_PRIVATE_KEY_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "themind_actions", cfg.Redis.Queue)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Historian.FlushInterval())
	assert.Equal(t, 10*time.Minute, cfg.Historian.Inactivity())

	assert.Empty(t, cfg.JWTPublicKeyPath)

	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, ttl)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_USER", "mind")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_DATABASE", "game")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres://mind:p%40ss@db:6543/game", cfg.Postgres.DSN())

	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse env:"))

	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TOKEN_EXPIRE_TIME", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "token expire")

	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	t.Setenv("JWT_PRIVATE_KEY_PATH", "/keys/jwt")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_PUBLIC_KEY_PATH")
}

func TestLoadJWTKeyPaths(t *testing.T) {
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/jwt.pub")
	t.Setenv("JWT_PRIVATE_KEY_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/keys/jwt.pub", cfg.JWTPublicKeyPath)
	assert.Empty(t, cfg.JWTPrivateKeyPath)
}
