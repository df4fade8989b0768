package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Everything comes from the
// environment so main stays lean; empty backends mean "use in-memory".
type Config struct {
	Addr          string
	JWTSigningKey string

	// OwnerAddress is the engine owner; always an implicit agent.
	OwnerAddress string

	PostgresURL string
	Redis       RedisConfig

	Kafka KafkaConfig

	// Default rule parameters applied when the server wires its rule set.
	Rules RulesConfig
}

// RedisConfig configures the optional status-cache backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional compliance event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RulesConfig carries the env-driven defaults for the standard rule set.
type RulesConfig struct {
	MaxInvestors      int
	HoldingPeriod     time.Duration
	MinLevel          string
	GeographicMode    string
	MaxTokensPerInv   uint64
	MaxInvestmentUSD  int64 // cents
	UnitPriceUSDCents int64
}

// FromEnv builds a Config from environment variables with dev defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("TOKENGATE_ADDR", ":8080"),
		JWTSigningKey: getenv("TOKENGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		OwnerAddress:  os.Getenv("TOKENGATE_OWNER_ADDRESS"),
		PostgresURL:   os.Getenv("TOKENGATE_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("TOKENGATE_REDIS_URL"),
			PoolSize:     getint("TOKENGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("TOKENGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("TOKENGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("TOKENGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("TOKENGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: getenv("TOKENGATE_KAFKA_TOPIC", "tokengate.compliance.events"),
		},
		Rules: RulesConfig{
			MaxInvestors:      getint("TOKENGATE_RULE_MAX_INVESTORS", 0),
			HoldingPeriod:     getduration("TOKENGATE_RULE_HOLDING_PERIOD", 0),
			MinLevel:          os.Getenv("TOKENGATE_RULE_MIN_LEVEL"),
			GeographicMode:    os.Getenv("TOKENGATE_RULE_GEOGRAPHIC_MODE"),
			MaxTokensPerInv:   uint64(getint("TOKENGATE_RULE_MAX_TOKENS_PER_INVESTOR", 0)),
			MaxInvestmentUSD:  int64(getint("TOKENGATE_RULE_MAX_INVESTMENT_CENTS", 0)),
			UnitPriceUSDCents: int64(getint("TOKENGATE_RULE_UNIT_PRICE_CENTS", 0)),
		},
	}
	if brokers := os.Getenv("TOKENGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
