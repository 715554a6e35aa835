package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration.
type Config struct {
	Addr          string
	LawsDir       string
	ProfilesFile  string
	JWTSigningKey string

	// HashSalt feeds BSN pseudonymization. Deployment-specific; changing it
	// breaks joins against existing history.
	HashSalt string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig configures the history database. An empty DSN selects the
// in-memory history store.
type PostgresConfig struct {
	DSN string
}

// RedisConfig configures the delegation context cache. An empty URL disables
// Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures audit event publishing. Empty brokers select the
// in-memory audit sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          envOr("MACHINELAW_ADDR", ":8080"),
		LawsDir:       envOr("MACHINELAW_LAWS_DIR", "laws"),
		ProfilesFile:  os.Getenv("MACHINELAW_PROFILES_FILE"),
		JWTSigningKey: envOr("MACHINELAW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		HashSalt:      envOr("MACHINELAW_HASH_SALT", "dev-salt-change-in-production"),
		Postgres: PostgresConfig{
			DSN: os.Getenv("MACHINELAW_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("MACHINELAW_REDIS_URL"),
			PoolSize:     envInt("MACHINELAW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MACHINELAW_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("MACHINELAW_KAFKA_BROKERS")),
			Topic:   envOr("MACHINELAW_KAFKA_AUDIT_TOPIC", "machinelaw.audit"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
