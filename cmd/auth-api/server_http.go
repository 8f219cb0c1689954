package main

import (
	"context"
	"net/http"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/obs"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	"github.com/NordCoder/Warden/internal/services/auth-api/httpapi"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, api *httpapi.Server, db *pg.DB, rc goredis.UniversalClient, logger *zap.Logger) *http.Server {
	health := obs.AllChecks(map[string]obs.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rc.Ping(ctx).Err() },
	})

	root := obs.MetricsMux(health, logger)
	root.Handle("/api/", api.Routes())

	return &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      obs.HTTPHandler(root, cfg.OTEL.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func serveHTTP(s *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", s.Addr))
	return s.ListenAndServe()
}
