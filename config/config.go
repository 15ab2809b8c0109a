package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string
	AppMode    string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// Dispatcher tuning
	DispatcherBatchSize    int
	DispatcherPollInterval time.Duration
	DispatcherMaxRetries   int
	HandlerTimeout         time.Duration
	SweepInterval          time.Duration
	RetryBackoff           time.Duration
	StaleClaimTimeout      time.Duration
	RetentionPeriod        time.Duration

	// Idempotency
	IdempotencyTTL time.Duration

	// Optional downstream fan-out
	KafkaEnabled  bool
	KafkaBrokers  []string
	KafkaTopic    string
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		AppMode:    getEnv("APP_MODE", "debug"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "salespipe"),
		DBPort:     getEnv("DB_PORT", "5432"),

		DispatcherBatchSize:    getEnvAsInt("DISPATCHER_BATCH_SIZE", 50),
		DispatcherPollInterval: getEnvAsDuration("DISPATCHER_POLL_INTERVAL_MS", 1000),
		DispatcherMaxRetries:   getEnvAsInt("DISPATCHER_MAX_RETRIES", 5),
		HandlerTimeout:         getEnvAsDuration("HANDLER_TIMEOUT_MS", 30000),
		SweepInterval:          getEnvAsDuration("SWEEP_INTERVAL_MS", 30000),
		RetryBackoff:           getEnvAsDuration("RETRY_BACKOFF_MS", 60000),
		StaleClaimTimeout:      getEnvAsDuration("STALE_CLAIM_TIMEOUT_MS", 300000),
		RetentionPeriod:        getEnvAsDuration("RETENTION_PERIOD_MS", int(7*24*time.Hour/time.Millisecond)),

		IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL_MS", int(24*time.Hour/time.Millisecond)),

		KafkaEnabled:  getEnvAsBool("KAFKA_ENABLED", false),
		KafkaBrokers:  splitNonEmpty(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "crm.events"),
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
