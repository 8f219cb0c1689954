package main

import (
	"context"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	rds "github.com/NordCoder/Warden/internal/repository/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*goredis.Client, error) {
	c, err := rds.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	return c, nil
}
