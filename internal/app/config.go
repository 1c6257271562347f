package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver определяет бэкенд хранения.
type StorageDriver string

const (
	// StorageDriverMemory — in-memory хранилище для разработки и тестов.
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — PostgreSQL.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers string

	AIBaseURL    string
	AITimeout    time.Duration
	AIMaxRetries int
	AIMockMode   bool

	RedisAddr     string
	RedisCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию по умолчанию: in-memory storage,
// mock AI, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		AITimeout:    10 * time.Second,
		AIMaxRetries: 3,
		AIMockMode:   true,

		RedisCacheTTL: 5 * time.Minute,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// ConfigFromEnv формирует конфигурацию из переменных окружения CRM_*,
// начиная с DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("CRM_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("CRM_METRICS_ADDR", cfg.MetricsAddr)

	if v := envString("CRM_STORAGE_DRIVER", ""); v != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(v))
	}
	cfg.PostgresDSN = envString("CRM_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("CRM_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)

	cfg.KafkaBrokers = envString("CRM_KAFKA_BROKERS", cfg.KafkaBrokers)

	cfg.AIBaseURL = envString("CRM_AI_BASE_URL", cfg.AIBaseURL)
	cfg.AITimeout = envDuration("CRM_AI_TIMEOUT", cfg.AITimeout)
	cfg.AIMaxRetries = envInt("CRM_AI_MAX_RETRIES", cfg.AIMaxRetries)
	// Реальный AI-сервис включается адресом, mock остаётся fallback.
	cfg.AIMockMode = envBool("CRM_AI_MOCK_MODE", cfg.AIBaseURL == "")

	cfg.RedisAddr = envString("CRM_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisCacheTTL = envDuration("CRM_REDIS_CACHE_TTL", cfg.RedisCacheTTL)

	cfg.OutboxPollInterval = envDuration("CRM_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("CRM_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("CRM_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("CRM_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	cfg.IdempotencyTTL = envDuration("CRM_IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyCleanupInterval = envDuration("CRM_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatchSize = envInt("CRM_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize)

	return cfg
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(name string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
