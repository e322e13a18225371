package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/textilestore/internal/auth"
	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/textilestore/internal/health"
	"github.com/vladislavdragonenkov/textilestore/internal/httpapi"
	"github.com/vladislavdragonenkov/textilestore/internal/instagram"
	"github.com/vladislavdragonenkov/textilestore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
	"github.com/vladislavdragonenkov/textilestore/internal/service/catalog"
	"github.com/vladislavdragonenkov/textilestore/internal/service/checkout"
	"github.com/vladislavdragonenkov/textilestore/internal/service/idempotency"
	"github.com/vladislavdragonenkov/textilestore/internal/service/orders"
	"github.com/vladislavdragonenkov/textilestore/internal/service/outbox"
	"github.com/vladislavdragonenkov/textilestore/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает витрину и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithField("build", version.String()).Info("starting textile store")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	storeMetrics := metrics.NewStoreMetrics()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	orderSvc := orders.NewService(deps.orders, deps.outboxRepo, deps.timelineRepo,
		logger.WithField("layer", "orders"), orders.WithMetrics(storeMetrics))
	catalogSvc := catalog.NewService(deps.catalogs, deps.products, nil,
		logger.WithField("layer", "catalog"), catalog.WithMetrics(storeMetrics))
	checkoutSvc := checkout.NewService(orderSvc, cfg.WhatsAppNumber, storeMetrics,
		logger.WithField("layer", "checkout"))

	authSvc, tokens, err := initAuth(cfg, deps.users, logger)
	if err != nil {
		return err
	}

	sessions := cart.NewSessions(
		cart.WithTTL(cfg.CartTTL),
		cart.WithObserver(func(a cart.Action) { storeMetrics.RecordCartAction(cart.ActionName(a)) }),
	)
	go sessions.RunSweeper(ctx, cfg.CartSweepInterval, logger.WithField("layer", "cart"))

	proxies, err := httpapi.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	limiter := httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, httpapi.WithTrustedProxies(proxies...))
	go limiter.Run(ctx)

	embed := instagram.NewEmbedLoader(cfg.InstagramEmbedURL, nil, logger.WithField("layer", "instagram"))

	worker := newOutboxWorker(cfg, deps.outboxRepo, kafkaProducer, logger)
	go worker.Run(ctx)

	guard := idempotency.NewGuard(deps.idempotency, cfg.IdempotencyTTL, logger.WithField("layer", "idempotency"))
	cleanup := idempotency.NewCleanupWorker(deps.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanup.Run(ctx)

	var notifier *kafka.Consumer
	if kafkaProducer != nil {
		notifier = startNotifier(ctx, cfg, kafkaProducer, storeMetrics, logger)
	}
	defer func() {
		if notifier != nil {
			_ = notifier.Stop()
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("outbox", healthcheck.NewBacklogChecker("outbox", deps.outboxRepo.Stats, cfg.OutboxMaxPendingAge))
	if deps.store != nil {
		store := deps.store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	api := httpapi.NewServer(httpapi.Deps{
		Catalog:     catalogSvc,
		Orders:      orderSvc,
		Checkout:    checkoutSvc,
		Idempotency: guard,
		Auth:        authSvc,
		Tokens:      tokens,
		Sessions:    sessions,
		Embed:       embed,
		Limiter:     limiter,
		Metrics:     storeMetrics,
		Logger:      logger.WithField("layer", "http"),
		CartTTL:     cfg.CartTTL,
	})
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer := newGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("storefront API listening on %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Infof("gRPC health listening on %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// initAuth создаёт выпуск токенов и заводит администратора из конфигурации.
func initAuth(cfg Config, users domain.UserRepository, logger *log.Entry) (*auth.Service, *auth.TokenIssuer, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT secret is not configured, using a random one; sessions will not survive restart")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.JWTTTL)
	if err != nil {
		return nil, nil, err
	}
	svc := auth.NewService(users, tokens, logger.WithField("layer", "auth"))
	if err := svc.EnsureAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, nil, err
	}
	return svc, tokens, nil
}

// newOutboxWorker публикует события заявок в Kafka, а без неё пишет их в лог.
func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, logger *log.Entry) *outbox.Worker {
	workerLogger := logger.WithField("component", "outbox-worker")
	opts := []outbox.Option{
		outbox.WithLogger(workerLogger),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if producer == nil {
		return outbox.NewWorker(repo, logPublisher{logger: workerLogger}, opts...)
	}
	opts = append(opts, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	return outbox.NewWorker(repo, kafka.NewOutboxPublisher(producer, cfg.KafkaTopic), opts...)
}

// newGRPCServer поднимает gRPC health и reflection для оркестратора.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	return grpcServer, healthServer
}

func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop timed out, forcing gRPC stop")
		srv.Stop()
	}
}

// startMetricsServer запускает /metrics и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
