package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/crm/internal/health"
	"github.com/vladislavdragonenkov/crm/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/crm/internal/metrics"
	"github.com/vladislavdragonenkov/crm/internal/pkg/cache"
	"github.com/vladislavdragonenkov/crm/internal/service/ai"
	"github.com/vladislavdragonenkov/crm/internal/service/idempotency"
	"github.com/vladislavdragonenkov/crm/internal/service/order"
	"github.com/vladislavdragonenkov/crm/internal/service/outbox"
	"github.com/vladislavdragonenkov/crm/internal/transport/httpx"
	"github.com/vladislavdragonenkov/crm/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает CRM-сервис и блокируется до отмены ctx
// или фатальной ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("storage close with error")
		}
	}()

	// Kafka опционален: без брокеров события копятся в outbox.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	aiSvc := initAIService(cfg, logger)

	coordinator := order.NewCoordinatorWithTransitions(
		storage.Orders,
		storage.History,
		metrics.NewOrderMetrics(),
		domain.DefaultStatusTransitions(),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if storage.store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			return storage.store.Ping(context.Background())
		}))
	}
	healthHandler.RegisterChecker("ai", healthcheck.NewSimpleChecker("ai", func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return aiSvc.Health(checkCtx)
	}))

	handler := httpx.NewHandler(httpx.Deps{
		Coordinator:    coordinator,
		Customers:      storage.Customers,
		Products:       storage.Products,
		Leads:          storage.Leads,
		AI:             aiSvc,
		Idempotency:    storage.Idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	router := httpx.NewRouter(handler, healthHandler)

	var wg sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if producer != nil {
		worker := outbox.NewWorker(
			storage.Outbox,
			kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(
		storage.Idempotency,
		idempotency.WithLogger(log.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanupWorker.Run(workerCtx)
	}()

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// initAIService выбирает реализацию AI: mock, прямой клиент
// или клиент с Redis-кэшем рекомендаций.
func initAIService(cfg Config, logger *log.Entry) domain.AIService {
	if cfg.AIMockMode || cfg.AIBaseURL == "" {
		logger.Info("AI работает в mock-режиме")
		return ai.NewMockService()
	}

	var svc domain.AIService = ai.NewClient(cfg.AIBaseURL, cfg.AITimeout, cfg.AIMaxRetries)
	logger.WithField("base_url", cfg.AIBaseURL).Info("AI клиент инициализирован")

	if cfg.RedisAddr != "" {
		svc = ai.NewCachedService(svc, cache.NewRedisCache(cfg.RedisAddr, "crm"), cfg.RedisCacheTTL)
		logger.WithField("redis_addr", cfg.RedisAddr).Info("кэш AI-рекомендаций включён")
	}
	return svc
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
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
