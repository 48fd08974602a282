package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/config"
	"github.com/corpus-self/ingest-fabric/internal/consumer"
	"github.com/corpus-self/ingest-fabric/internal/events"
	"github.com/corpus-self/ingest-fabric/internal/handler"
	"github.com/corpus-self/ingest-fabric/internal/idempotency"
	"github.com/corpus-self/ingest-fabric/internal/loader"
	"github.com/corpus-self/ingest-fabric/internal/pubsubclient"
	"github.com/corpus-self/ingest-fabric/internal/registry"
	"github.com/corpus-self/ingest-fabric/internal/telemetry"
	"github.com/corpus-self/ingest-fabric/internal/vespa"
)

const serviceName = "vespa-loader"

func main() {
	// --- Structured Logger ---
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// --- Configuration ---
	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.Fatal("configuration failed", zap.Error(err))
	}

	// --- OpenTelemetry Tracer ---
	if cfg.OtelEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OtelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
			logger.Info("OTel tracer initialized", zap.String("endpoint", cfg.OtelEndpoint))
		}
		mp, err := telemetry.InitMeterProvider(context.Background(), serviceName, cfg.OtelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
		}
	}

	// --- Vault Secret Overlay ---
	vaultManager, err := config.NewSecretManager(cfg.VaultAddr, cfg.VaultToken)
	if err != nil {
		logger.Fatal("Vault connection failed", zap.Error(err))
	}
	if err := cfg.LoadSecrets(vaultManager); err != nil {
		logger.Warn("Vault secrets unavailable, using env baseline", zap.Error(err))
	}

	// --- Idempotency Store (Redis) ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer rdb.Close()
	kernel := idempotency.NewKernel(idempotency.NewRedisStore(rdb, logger), logger)

	// --- Pub/Sub ---
	psClient, err := pubsubclient.NewClient(context.Background(), cfg.ProjectID, logger)
	if err != nil {
		logger.Fatal("Pub/Sub connection failed", zap.Error(err))
	}
	defer psClient.Close()

	provision := append(events.Topics(), registry.DeadLetterTopics(registry.ServiceVespaLoader)...)
	if err := psClient.ProvisionTopics(context.Background(), provision); err != nil {
		logger.Fatal("topic provisioning failed", zap.Error(err))
	}

	// --- Loader Pipeline ---
	writer := vespa.NewClient(cfg.VespaURL, logger)
	processor := loader.NewProcessor(writer, logger)

	cons := consumer.New(registry.ServiceVespaLoader, psClient.Client, kernel, logger)
	for _, topic := range registry.TopicsFor(registry.ServiceVespaLoader) {
		if err := cons.Handle(topic, func(ctx context.Context, ev events.Event) (any, error) {
			return processor.Process(ctx, ev)
		}); err != nil {
			logger.Fatal("handler registration failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	if err := cons.Start(context.Background()); err != nil {
		logger.Fatal("failed to start consumer", zap.Error(err))
	}
	logger.Info("vespa-loader started (consumer active)",
		zap.Int("topics", len(registry.TopicsFor(registry.ServiceVespaLoader))))

	// --- HTTP Server ---
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Recover())
	handler.RegisterRoutes(e, cons.Stats(), nil, logger)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	cons.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Echo shutdown error", zap.Error(err))
	}
	logger.Info("vespa-loader shut down cleanly")
}
