package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/app"
	"github.com/vladislavdragonenkov/textilestore/internal/version"
)

const (
	envAppEnv              = "STORE_ENV"
	envLogLevel            = "STORE_LOG_LEVEL"
	envHTTPAddr            = "STORE_HTTP_ADDR"
	envGRPCAddr            = "STORE_GRPC_ADDR"
	envMetricsAddr         = "STORE_METRICS_ADDR"
	envStorageDriver       = "STORE_STORAGE_DRIVER"
	envPostgresDSN         = "STORE_POSTGRES_DSN"
	envPostgresAutoMigrate = "STORE_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaTopic          = "STORE_KAFKA_TOPIC"
	envKafkaNotifierGroup  = "STORE_KAFKA_NOTIFIER_GROUP"
	envOutboxPollInterval  = "STORE_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "STORE_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "STORE_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "STORE_OUTBOX_RETRY_DELAY"
	envOutboxMaxPendingAge = "STORE_OUTBOX_MAX_PENDING_AGE"
	envJWTSecret           = "STORE_JWT_SECRET"
	envJWTTTL              = "STORE_JWT_TTL"
	envAdminEmail          = "STORE_ADMIN_EMAIL"
	envAdminPassword       = "STORE_ADMIN_PASSWORD"
	envWhatsAppNumber      = "STORE_WHATSAPP_NUMBER"
	envCartTTL             = "STORE_CART_TTL"
	envCartSweepInterval   = "STORE_CART_SWEEP_INTERVAL"
	envRateLimitRPS        = "STORE_RATE_LIMIT_RPS"
	envRateLimitBurst      = "STORE_RATE_LIMIT_BURST"
	envTrustedProxies      = "STORE_TRUSTED_PROXIES"
	envInstagramEmbedURL   = "STORE_INSTAGRAM_EMBED_URL"

	envIdempotencyTTL              = "STORE_IDEMPOTENCY_TTL"
	envIdempotencyCleanupInterval  = "STORE_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "STORE_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Warnf("invalid %s, using info", envLogLevel)
			return
		}
		log.SetLevel(level)
	}
}

// loadDotEnv подхватывает .env вне production. Уже заданные переменные не перетираются.
func loadDotEnv(lookup envLookup, path string) error {
	if env, _ := lookup(envAppEnv); strings.EqualFold(strings.TrimSpace(env), "production") {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// readConfigFromEnv собирает конфигурацию. Некорректные значения
// игнорируются с предупреждением, остаётся значение по умолчанию.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	positiveInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
			if err != nil {
				warn(key, err)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		if v, ok := lookup(key); ok {
			d, err := parseDuration(v, valid, rule)
			if err != nil {
				warn(key, err)
				return
			}
			*dst = d
		}
	}
	positive := func(d time.Duration) bool { return d > 0 }

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(strings.TrimSpace(v)))
	}
	str(envPostgresDSN, &cfg.PostgresDSN)
	if v, ok := lookup(envPostgresAutoMigrate); ok {
		b, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = b
		}
	}

	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaNotifierGroup, &cfg.KafkaNotifierGroup)

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0")
	positiveInt(envOutboxBatchSize, &cfg.OutboxBatchSize)
	positiveInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
	duration(envOutboxMaxPendingAge, &cfg.OutboxMaxPendingAge, positive, "must be > 0")

	str(envJWTSecret, &cfg.JWTSecret)
	duration(envJWTTTL, &cfg.JWTTTL, positive, "must be > 0")
	str(envAdminEmail, &cfg.AdminEmail)
	if v, ok := lookup(envAdminPassword); ok {
		cfg.AdminPassword = v
	}

	str(envWhatsAppNumber, &cfg.WhatsAppNumber)
	duration(envCartTTL, &cfg.CartTTL, positive, "must be > 0")
	duration(envCartSweepInterval, &cfg.CartSweepInterval, positive, "must be > 0")

	if v, ok := lookup(envRateLimitRPS); ok {
		rps, err := parseFloat(v)
		if err != nil {
			warn(envRateLimitRPS, err)
		} else {
			cfg.RateLimitRPS = rps
		}
	}
	positiveInt(envRateLimitBurst, &cfg.RateLimitBurst)
	str(envTrustedProxies, &cfg.TrustedProxies)
	str(envInstagramEmbedURL, &cfg.InstagramEmbedURL)

	duration(envIdempotencyTTL, &cfg.IdempotencyTTL, positive, "must be > 0")
	duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positive, "must be > 0")
	positiveInt(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(n) {
		return 0, fmt.Errorf("value %d %s", n, rule)
	}
	return n, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(d) {
		return 0, fmt.Errorf("value %s %s", d, rule)
	}
	return d, nil
}

// parseFloat разбирает лимит запросов; 0 и меньше отключают ограничение.
func parseFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return f, nil
}

func main() {
	if err := loadDotEnv(os.LookupEnv, ".env"); err != nil {
		log.WithError(err).Warn("failed to load .env")
	}
	setupLogger(os.LookupEnv)

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warnf("config: %s, using default", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.GetVersion(),
	}).Info("starting storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("storefront exited with error")
	}

	log.Info("storefront stopped")
}
