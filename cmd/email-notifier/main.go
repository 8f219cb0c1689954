package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Warden/internal/config/email-notifier"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/repository/kafka"
	notifier "github.com/NordCoder/Warden/internal/services/email-notifier"

	"go.uber.org/zap"
)

func wiring(cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) (*notifier.Runner, error) {
	mailer := notifier.New(cfg.SMTP).WithLogger(l)
	h, err := notifier.NewHandler(mailer, notifier.Links{
		VerifyURL: cfg.Mail.VerifyURL,
		ResetURL:  cfg.Mail.ResetURL,
		Product:   cfg.Mail.Product,
	}, cfg.Mail.ActionTTL, l)
	if err != nil {
		return nil, err
	}
	return notifier.NewRunner(l, cons, h), nil
}

func main() {
	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load("../config/email-notifier.yaml")
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting email-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelCloser.Shutdown(context.Background()) }()
	}

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(context.Context) error { return nil }, l)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), kafka.TopicSpec{}, l).WithLogger(l)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	// start
	runner, err := wiring(cfg, cons, l)
	if err != nil {
		l.Fatal("wiring", zap.Error(err))
	}
	errCh := make(chan error, 1)
	go func() {
		l.Info("runner starting")
		errCh <- runner.Run(rootCtx)
	}()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("runner error", zap.Error(runErr))
		}
	}

	// graceful metrics server shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
