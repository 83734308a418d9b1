package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"QARA_ADDR", "DATABASE_URL", "REDIS_URL", "AUTOSAVE_DEBOUNCE", "RESPONSE_WRITE_TIMEOUT", "KAFKA_BROKERS", "CATALOG_WATCH", "HTTP_WRITE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, DefaultAutosaveDebounce, cfg.Responses.AutosaveDebounce)
	assert.Equal(t, DefaultWriteTimeout, cfg.Responses.WriteTimeout)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.Catalog.Watch)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("AUTOSAVE_DEBOUNCE", "2s")
	t.Setenv("RESPONSE_WRITE_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("CATALOG_WATCH", "true")
	t.Setenv("APP_ENV", "production")

	cfg := FromEnv()

	assert.Equal(t, 2*time.Second, cfg.Responses.AutosaveDebounce)
	assert.Equal(t, 750*time.Millisecond, cfg.Responses.WriteTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Catalog.Watch)
	assert.True(t, cfg.Server.IsProduction())
}

func TestFromEnv_MalformedDurationFallsBack(t *testing.T) {
	t.Setenv("RESPONSE_WRITE_TIMEOUT", "soon")
	t.Setenv("AUTOSAVE_DEBOUNCE", "-1s")

	cfg := FromEnv()

	assert.Equal(t, DefaultWriteTimeout, cfg.Responses.WriteTimeout)
	assert.Equal(t, DefaultAutosaveDebounce, cfg.Responses.AutosaveDebounce)
}
