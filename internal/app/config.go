package app

import "time"

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто — Kafka выключена.
	KafkaBrokers       string
	KafkaTopic         string
	KafkaNotifierGroup string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPendingAge — старше этого backlog считается деградацией.
	OutboxMaxPendingAge time.Duration

	JWTSecret     string
	JWTTTL        time.Duration
	AdminEmail    string
	AdminPassword string

	WhatsAppNumber    string
	CartTTL           time.Duration
	CartSweepInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies — адреса и подсети через запятую, чей X-Forwarded-For учитывается.
	TrustedProxies string

	InstagramEmbedURL string

	// IdempotencyTTL — сколько хранится ответ оформления по ключу клиента.
	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaTopic:          "textile.order.events",
		KafkaNotifierGroup:  "textilestore-notifier",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    100 * time.Millisecond,
		OutboxMaxPendingAge: 5 * time.Minute,
		JWTTTL:              12 * time.Hour,
		CartTTL:             2 * time.Hour,
		CartSweepInterval:   time.Minute,
		RateLimitRPS:        20,
		RateLimitBurst:      40,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}
