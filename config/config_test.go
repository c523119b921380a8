package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigBasics(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("JWT_TTL", "24h")
	t.Setenv("CITIES_SOURCE", "embedded")
	t.Setenv("EVENTS_BACKEND", "none")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "true")

	cfg := LoadConfig()

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "embedded", cfg.Cities.Source)
	assert.Equal(t, "none", cfg.Events.Backend)
	assert.True(t, cfg.RabbitMQ.QueueDurable)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_SSL", "yes")
	t.Setenv("JWT_SECRET", "  secret  ")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("ADMIN_EMAIL", " admin@example.com ")
	t.Setenv("EVENTS_BACKEND", "rabbitmq")
	t.Setenv("EVENTS_CHANNEL", "tz")
	t.Setenv("MINIO_USE_SSL", "on")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin@example.com", cfg.Auth.AdminEmail)
	assert.Equal(t, "rabbitmq", cfg.Events.Backend)
	assert.Equal(t, "tz", cfg.Events.Channel)
	assert.True(t, cfg.Minio.UseSSL)
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("WC_TEST_INT", "abc")
	t.Setenv("WC_TEST_BOOL", "maybe")
	t.Setenv("WC_TEST_DURATION", "-5s")

	assert.Equal(t, 7, getEnvInt("WC_TEST_INT", 7))
	assert.True(t, getEnvBool("WC_TEST_BOOL", true))
	assert.False(t, getEnvBool("WC_TEST_BOOL", false))
	assert.Equal(t, time.Second, getEnvDuration("WC_TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnv("WC_TEST_MISSING", "fallback"))

	t.Setenv("WC_TEST_DURATION", "not-a-duration")
	assert.Equal(t, time.Minute, getEnvDuration("WC_TEST_DURATION", time.Minute))
}

func TestGetEnvBoolParsesFalseValues(t *testing.T) {
	for _, v := range []string{"0", "false", "NO", " off "} {
		t.Setenv("WC_TEST_BOOL", v)
		assert.False(t, getEnvBool("WC_TEST_BOOL", true), v)
	}
}
