package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration. Empty backend URLs select the
// in-memory implementations so the service runs with no infrastructure.
type Config struct {
	Server      Server
	Postgres    PostgresConfig
	Redis       RedisConfig
	Drafts      DraftsConfig
	Catalog     CatalogConfig
	Responses   ResponsesConfig
	Aggregation AggregationConfig
	Kafka       KafkaConfig
	Tracing     TracingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	ShutdownTimeout time.Duration
	// ReadTimeout bounds request bodies; WriteTimeout must cover the slowest
	// aggregation read.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// IsProduction reports whether logs should be emitted as JSON.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

type PostgresConfig struct {
	URL      string
	MaxConns int32
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DraftsConfig locates the on-disk draft cache. An empty dir keeps drafts in memory.
type DraftsConfig struct {
	CacheDir string
}

type CatalogConfig struct {
	Path  string
	Watch bool
}

// ResponsesConfig tunes the save path.
type ResponsesConfig struct {
	AutosaveDebounce time.Duration
	WriteTimeout     time.Duration
	RetryInterval    time.Duration
	RetryMaxElapsed  time.Duration
}

type AggregationConfig struct {
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TracingConfig struct {
	Enabled bool
}

// Defaults applied when the matching variable is unset or malformed.
const (
	DefaultAutosaveDebounce = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultRetryInterval    = 15 * time.Second
	DefaultRetryMaxElapsed  = 2 * time.Minute
	DefaultAggregationTTL   = time.Minute
	DefaultCatalogPath      = "catalog/questions.yaml"
)

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("QARA_ADDR", ":8080"),
			Environment:     envString("APP_ENV", "development"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			ReadTimeout:     envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     envDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(envInt("DATABASE_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Drafts: DraftsConfig{
			CacheDir: os.Getenv("DRAFT_CACHE_DIR"),
		},
		Catalog: CatalogConfig{
			Path:  envString("CATALOG_PATH", DefaultCatalogPath),
			Watch: envBool("CATALOG_WATCH", false),
		},
		Responses: ResponsesConfig{
			AutosaveDebounce: envDuration("AUTOSAVE_DEBOUNCE", DefaultAutosaveDebounce),
			WriteTimeout:     envDuration("RESPONSE_WRITE_TIMEOUT", DefaultWriteTimeout),
			RetryInterval:    envDuration("RETRY_INTERVAL", DefaultRetryInterval),
			RetryMaxElapsed:  envDuration("RETRY_MAX_ELAPSED", DefaultRetryMaxElapsed),
		},
		Aggregation: AggregationConfig{
			CacheTTL: envDuration("AGGREGATION_CACHE_TTL", DefaultAggregationTTL),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_TOPIC", "qara.audit-events"),
		},
		Tracing: TracingConfig{
			Enabled: envBool("OTEL_ENABLED", false),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
