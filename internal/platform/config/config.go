package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything cmd/server needs to wire the service. Backends
// are optional: an empty Postgres DSN selects the in-memory stores, an empty
// Redis URL disables the catalog cache, and empty Kafka brokers select the
// in-process audit channel.
type Config struct {
	Addr string

	PostgresDSN string

	Redis RedisConfig

	KafkaBrokers    []string
	KafkaAuditTopic string

	MonitorInterval time.Duration
	CatalogCacheTTL time.Duration
}

// RedisConfig tunes the optional catalog cache connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("MEDTRACE_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("MEDTRACE_POSTGRES_DSN"),
		KafkaAuditTopic: envOr("MEDTRACE_AUDIT_TOPIC", "medtrace.custody-audit"),
		MonitorInterval: envDuration("MEDTRACE_MONITOR_INTERVAL", 5*time.Minute),
		CatalogCacheTTL: envDuration("MEDTRACE_CATALOG_CACHE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("MEDTRACE_REDIS_URL"),
			PoolSize:     envInt("MEDTRACE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MEDTRACE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("MEDTRACE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MEDTRACE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MEDTRACE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("MEDTRACE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
