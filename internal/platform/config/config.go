package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean; dev defaults keep local runs zero-setup.
type Server struct {
	Addr          string
	JWTSigningKey string
	SessionTTL    time.Duration

	// OpenSessionsPerMinute throttles session opens per client IP. Zero
	// disables the limiter.
	OpenSessionsPerMinute int

	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// HTTPConfig holds the server timeouts. Write stays generous because a
// submit can wait on the record store; read header stays tight because
// clients send tiny JSON bodies.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// PostgresConfig selects the durable record store. An empty URL keeps the
// in-memory store, which is enough for dev and tests.
type PostgresConfig struct {
	URL string
}

// RedisConfig selects the session store backend. An empty URL keeps the
// in-memory session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event publisher. No brokers means audit
// events stay in the in-memory sink only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("FORMFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("FORMFLOW_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Dev default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	sessionTTL := durationEnv("FORMFLOW_SESSION_TTL", 24*time.Hour)

	cfg := Server{
		Addr:                  addr,
		JWTSigningKey:         jwtSigningKey,
		SessionTTL:            sessionTTL,
		OpenSessionsPerMinute: intEnv("FORMFLOW_OPEN_SESSIONS_PER_MINUTE", 30),
		HTTP: HTTPConfig{
			ReadHeaderTimeout: durationEnv("FORMFLOW_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       durationEnv("FORMFLOW_HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      durationEnv("FORMFLOW_HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       durationEnv("FORMFLOW_HTTP_IDLE_TIMEOUT", 2*time.Minute),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("FORMFLOW_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("FORMFLOW_REDIS_URL"),
			PoolSize:     intEnv("FORMFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("FORMFLOW_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationEnv("FORMFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("FORMFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("FORMFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("FORMFLOW_KAFKA_AUDIT_TOPIC", "formflow.audit"),
		},
	}
	if brokers := os.Getenv("FORMFLOW_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
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

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
