package main

import (
	"context"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/obs/retry"
	"github.com/NordCoder/Warden/internal/outbox"
	"github.com/NordCoder/Warden/internal/repository/kafka"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	"go.uber.org/zap"
)

// startOutbox relays queued mail requests to Kafka until ctx is done.
func startOutbox(ctx context.Context, cfg *config.Config, db *pg.DB, logger *zap.Logger) (*outbox.Runner, *kafka.Producer) {
	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Kafka.Topic}, logger); err != nil {
		logger.Warn("ensure topic", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	handler := outbox.MakeGlobalOutboxHandler(kafka.NewMailEvents(producer), retry.DefaultKafkaPolicy(logger))

	runner := outbox.NewOutboxRunner(logger, pg.NewOutboxRepo(db), handler, cfg.Outbox)
	runner.Start(ctx)
	logger.Info("outbox runner started",
		zap.Int("workers", cfg.Outbox.Workers),
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return runner, producer
}
