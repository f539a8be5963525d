package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/achievement"
	"github.com/lalithlochan/solebox/internal/api"
	"github.com/lalithlochan/solebox/internal/auth"
	"github.com/lalithlochan/solebox/internal/circuitbreaker"
	"github.com/lalithlochan/solebox/internal/config"
	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/notify"
	"github.com/lalithlochan/solebox/internal/observ"
	"github.com/lalithlochan/solebox/internal/pricing"
	"github.com/lalithlochan/solebox/internal/redis"
	"github.com/lalithlochan/solebox/internal/sns"
	"github.com/lalithlochan/solebox/internal/sqs"
	"github.com/lalithlochan/solebox/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel, "gateway")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting solebox gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	ctx := context.Background()

	database, err := db.New(ctx, db.Config{
		URL:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		AppName:  "solebox-gateway",
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := db.NewRepository(database, logger)

	// Redis backs idempotency and rate limiting; both degrade to off.
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, idempotency and rate limiting disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	}

	var idempotencyService *redis.IdempotencyService
	var rateLimiter *redis.RateLimiter
	if redisClient != nil {
		idempotencyService = redis.NewIdempotencyService(redisClient, logger)
		rateLimiter = redis.NewRateLimiter(redisClient, logger, redis.RateLimitConfig{
			Limit:  cfg.RateLimitPerMinute,
			Window: time.Minute,
		})
		defer redisClient.Close()
	}

	var publisher notify.Publisher
	if cfg.SNSTopicARN != "" {
		p, err := sns.NewPublisher(ctx, cfg.SNSTopicARN)
		if err != nil {
			logger.Warn("sns publisher unavailable, push disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	notifications := notify.NewService(repo, publisher, logger)

	breakers := circuitbreaker.NewRegistry(nil, logger)
	fetcher := pricing.NewFetcher(pricing.FetcherConfig{
		Timeout:   cfg.PriceFetchTimeout,
		UserAgent: cfg.PriceUserAgent,
	}, breakers, logger)
	prices := pricing.NewService(repo, fetcher, notifications, pricing.Config{
		PriceDropTTL: cfg.PriceDropTTL,
	}, logger)

	checker := achievement.NewChecker(repo, notifications, logger)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var producer *sqs.Producer
	if cfg.SQSQueueURL != "" {
		sqsCfg := sqs.Config{
			Region:   cfg.AWSRegion,
			QueueURL: cfg.SQSQueueURL,
		}

		producer, err = sqs.NewProducer(ctx, sqsCfg, logger)
		if err != nil {
			logger.Warn("sqs producer unavailable, async checks disabled", zap.Error(err))
			producer = nil
		}

		consumer, err := sqs.NewConsumer(ctx, sqsCfg, logger)
		if err != nil {
			logger.Warn("sqs consumer unavailable, activity worker disabled", zap.Error(err))
		} else {
			w := worker.New(consumer, checker, worker.Config{}, logger)
			go w.Start(workerCtx)
			logger.Info("activity worker started")
		}
	}

	go reportPoolStats(workerCtx, database)

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	handler := api.NewHandler(logger, api.Services{
		Prices:        prices,
		Achievements:  checker,
		Notifications: notifications,
		Idempotency:   idempotencyService,
		Activity:      producer,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		Verifier:    verifier,
		ServiceKey:  cfg.ServiceKey,
		RateLimiter: rateLimiter,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		workerCancel()

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}

func reportPoolStats(ctx context.Context, database *db.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetDBConnections(database.AcquiredConns())
		}
	}
}
