package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, "http://localhost:8000/files", cfg.FileURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("API_URL", "https://school.example.com/api/")
	t.Setenv("REQUEST_TIMEOUT", "5")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("SESSION_TTL", "90m")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "https://school.example.com/api", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 90*time.Minute, cfg.Session.TTL)
}

func TestGetEnvFallbacksOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-3s")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
}
