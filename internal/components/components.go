package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AzenoHI/travel-hi/internal/api"
	"github.com/AzenoHI/travel-hi/internal/auth"
	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/live"
	"github.com/AzenoHI/travel-hi/internal/moderation"
	"github.com/AzenoHI/travel-hi/internal/observability"
	"github.com/AzenoHI/travel-hi/internal/service"
	"github.com/AzenoHI/travel-hi/internal/storage/postgres"
	"github.com/AzenoHI/travel-hi/internal/storage/redis"
	"github.com/AzenoHI/travel-hi/pkg/logger"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Postgres   *postgres.Postgres
	Redis      *redis.Redis
	Hub        *live.Hub
	WebhookQ   *redis.WebhookQueue
	Sender     *service.WebhookSender
}

func InitComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	log.Info("Initializing Postgres")
	storage, err := postgres.NewPostgres(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to init postgres", slog.Any("error", err))
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	log.Info("Initializing Redis")
	redisClient, err := redis.NewRedis(ctx, cfg, log)
	if err != nil {
		storage.Pool.Close()
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	metrics := observability.NewMetrics()

	hub := live.NewHub(cfg.Live.SubscriberBuffer, log,
		live.WithDeliveryHooks(metrics.EventsDelivered.Inc, metrics.EventsDropped.Inc),
	)

	feedCache := redis.NewFeedCache(redisClient, 30*time.Second)
	webhookQueue := redis.NewWebhookQueue(redisClient.Client, "webhooks:queue")

	var classifier service.Classifier
	if cfg.Moderation.Disabled || cfg.Moderation.APIKey == "" {
		log.Warn("moderation collaborator disabled, rule classifier only")
		classifier = moderation.RuleClassifier{}
	} else {
		classifier = moderation.NewClient(cfg.Moderation, log)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var queueForIngest service.WebhookQueue
	if !cfg.Webhook.Disabled && cfg.Webhook.URL != "" {
		queueForIngest = webhookQueue
	}

	ingestSvc := service.NewIngestService(
		storage.Incidents, classifier, hub, queueForIngest, feedCache, metrics, cfg, log,
	)
	querySvc := service.NewQueryService(storage.Incidents, feedCache, cfg, log)
	authSvc := service.NewAuthService(storage.Users, tokens, log)

	svc := service.NewService(ingestSvc, querySvc, authSvc)

	var sender *service.WebhookSender
	if queueForIngest != nil {
		sender = service.NewWebhookSender(log, cfg.Webhook, webhookQueue, metrics)
	}

	httpServer := api.NewServer(cfg, log, svc, hub, metrics)
	log.Info("Initialized server")

	return &Components{
		logger:     log,
		HttpServer: httpServer,
		Postgres:   storage,
		Redis:      redisClient,
		Hub:        hub,
		WebhookQ:   webhookQueue,
		Sender:     sender,
	}, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Component shutdown started")

	c.Hub.Close()
	c.Postgres.Pool.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
