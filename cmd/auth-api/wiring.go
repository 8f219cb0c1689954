package main

import (
	"github.com/NordCoder/Warden/internal/actiontoken"
	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/authstate"
	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/hash"
	"github.com/NordCoder/Warden/internal/outbox"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	rds "github.com/NordCoder/Warden/internal/repository/redis"
	flows "github.com/NordCoder/Warden/internal/services/auth-api/auth"
	"github.com/NordCoder/Warden/internal/services/auth-api/httpapi"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// buildAPI assembles the auth flows over postgres and redis.
func buildAPI(cfg *config.Config, db *pg.DB, rc goredis.UniversalClient, logger *zap.Logger) (*httpapi.Server, error) {
	codec, err := auth.NewCodec([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, err
	}
	issuer := auth.Issuer{AccessTTL: cfg.Auth.AccessTTL, RefreshTTL: cfg.Auth.RefreshTTL}

	store := rds.NewCacheStore(rc)
	users := rds.NewCachedUsers(pg.NewUserRepo(db), store, cfg.Auth.UserCacheTTL, logger)
	recovering := auth.NewRecovering(codec)

	gateway := func(ns string) *actiontoken.Gateway {
		return actiontoken.NewGateway(store, recovering, actiontoken.Config{
			Namespace: ns,
			TTL:       cfg.Auth.ActionTTL,
			CacheTTL:  cfg.Auth.ActionCacheTTL,
		})
	}

	uc := flows.NewUseCase(flows.Deps{
		Users:    users,
		Hasher:   hash.New(),
		Codec:    codec,
		Resolver: authstate.NewDefault(codec, users, issuer),
		Verify:   gateway("verify"),
		Reset:    gateway("reset"),
		Mail:     outbox.NewMailDispatcher(pg.NewOutboxRepo(db)),
		Tx:       pg.NewTransactor(db, logger),
		Logger:   logger,
	}, flows.Config{Issuer: issuer})

	return httpapi.NewServer(uc, rds.NewSessionStore(rc, cfg.Session.TTL), httpapi.Opts{
		Logger:      logger,
		Cookie:      cfg.Session,
		CORSOrigins: cfg.Server.CORSOrigins,
	}), nil
}
