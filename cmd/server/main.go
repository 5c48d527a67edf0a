package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/keyauth-service/internal/config"
	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/handler"
	"github.com/makkenzo/keyauth-service/internal/handler/middleware"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/sealer"
	"github.com/makkenzo/keyauth-service/internal/service"
	"github.com/makkenzo/keyauth-service/internal/storage/memstorage"
	"github.com/makkenzo/keyauth-service/internal/storage/postgres"
	"github.com/makkenzo/keyauth-service/internal/storage/redis"
	"github.com/makkenzo/keyauth-service/internal/tasks"
	"github.com/makkenzo/keyauth-service/internal/worker"
	"github.com/makkenzo/keyauth-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		dbPool         *pgxpool.Pool
		redisClient    *goredis.Client
		credentialRepo credential.Repository
		healthChecks   []handler.HealthCheck
	)

	if cfg.Database.URL != "" {
		dbPool, err = postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
		if err != nil {
			sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbPool.Close()

		if err := postgres.EnsureSchema(appCtx, dbPool, appLogger); err != nil {
			sugarLogger.Fatalf("Failed to prepare database schema: %v", err)
		}
		credentialRepo = postgres.NewCredentialRepository(dbPool, appLogger)
		healthChecks = append(healthChecks, handler.PostgresCheck(dbPool))
	} else {
		sugarLogger.Warn("database.url is empty; credentials are kept in memory and lost on restart")
		credentialRepo = memstorage.NewCredentialRepository()
	}

	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
		if err != nil {
			sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		healthChecks = append(healthChecks, handler.RedisCheck(redisClient))
	}

	var challengeStore challenge.Store
	switch cfg.Challenge.Store {
	case config.ChallengeStoreRedis:
		if redisClient == nil {
			sugarLogger.Fatal("challenge.store=redis requires redis.addr")
		}
		challengeStore = redis.NewChallengeStore(redisClient, appLogger)
	case config.ChallengeStoreMemory, "":
		challengeStore = memstorage.NewChallengeStore()
	default:
		sugarLogger.Fatalf("Unknown challenge store %q", cfg.Challenge.Store)
	}

	secretSealer, err := sealer.NewSealer(cfg.Auth.SecretSealingKey)
	if err != nil {
		sugarLogger.Fatalf("Invalid auth.secretSealingKey: %v", err)
	}

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	var usageRecorder service.UsageRecorder
	switch cfg.Usage.Mode {
	case config.UsageModeQueue:
		if redisClient == nil {
			sugarLogger.Fatal("usage.mode=queue requires redis.addr")
		}
		asynqClient := asynq.NewClient(worker.RedisClientOpt(&cfg.Redis))
		defer asynqClient.Close()
		usageRecorder = tasks.NewQueueUsageRecorder(asynqClient, appMetrics, appLogger)
	case config.UsageModeDirect, "":
		usageRecorder = service.NewDirectUsageRecorder(credentialRepo, appMetrics, appLogger)
	default:
		sugarLogger.Fatalf("Unknown usage mode %q", cfg.Usage.Mode)
	}

	credentialService := service.NewCredentialService(credentialRepo, secretSealer, usageRecorder, appLogger)
	challengeService := service.NewChallengeService(challengeStore, credentialService, cfg.Auth.ChallengeTTL, appLogger)
	tokenService := service.NewTokenService(&cfg.Auth, appLogger)
	authService := service.NewAuthService(challengeService, credentialService, tokenService, appMetrics, appLogger)

	var adminKeySource middleware.KeySource = middleware.HeaderKeySource{}
	if cfg.Auth.AdminAPIKey != "" {
		adminKeySource = middleware.StaticKeySource(cfg.Auth.AdminAPIKey)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           authService,
		Credentials:    credentialService,
		Metrics:        appMetrics,
		MetricsHandler: handler.DefaultMetricsHandler(),
		HealthChecks:   healthChecks,
		AdminKeySource: adminKeySource,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         appLogger,
	})

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")

		if err := challengeService.Close(); err != nil {
			sugarLogger.Errorf("Failed to close challenge store: %v", err)
		}
		return nil
	})

	if cfg.Usage.Mode == config.UsageModeQueue {
		g.Go(func() error {
			if err := worker.RunWorkers(groupCtx, cfg, credentialRepo, appMetrics, appLogger); err != nil {
				sugarLogger.Errorf("Asynq worker failed: %v", err)
				return fmt.Errorf("asynq worker error: %w", err)
			}
			sugarLogger.Info("Asynq workers finished gracefully.")
			return nil
		})
	}

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
	} else {
		sugarLogger.Info("Application shutdown successfully.")
	}
}
