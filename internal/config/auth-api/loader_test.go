package auth_api_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ActionTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ActionCacheTTL)
	assert.Equal(t, "sid", cfg.Session.Name)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "warden.mail", cfg.Kafka.Topic)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoJWTSecret)
}

func TestLoad_ActionTTLBounds(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s")

	t.Setenv("AUTH_ACTION_TTL", "5m")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrActionTTL)

	t.Setenv("AUTH_ACTION_TTL", "45m")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrActionTTL)

	t.Setenv("AUTH_ACTION_TTL", "30m")
	t.Setenv("AUTH_ACTION_CACHE_TTL", "20m")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrActionCache)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth-api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  jwt_secret: from-file
  access_ttl: 30m
session:
  cookie_secure: true
  cookie_domain: example.com
server:
  cors_origins: ["https://app.example.com"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, "example.com", cfg.Session.Domain)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
}
