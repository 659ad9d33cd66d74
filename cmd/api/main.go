// @title        DocShare Identity API
// @version      1.0
// @description  Credentials, session tokens and guarded user updates for the document-sharing backend.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docshare/identity-api/internal/api"
	"github.com/docshare/identity-api/internal/api/handler"
	"github.com/docshare/identity-api/internal/core/credential"
	"github.com/docshare/identity-api/internal/core/service"
	"github.com/docshare/identity-api/internal/core/token"
	"github.com/docshare/identity-api/internal/infrastructure/db/mongo"
	"github.com/docshare/identity-api/internal/infrastructure/db/redis"
	"github.com/docshare/identity-api/internal/infrastructure/queue"
	"github.com/docshare/identity-api/internal/pkg/config"
	"github.com/docshare/identity-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credential.New(cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Int("cost", cfg.Auth.BcryptCost).Msg("invalid bcrypt cost")
	}

	store, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	users := mongo.NewUserRepository(store.DB)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	markers := redis.NewSequence(rdb, redis.DefaultSequenceKey, logger.For("token-sequence"))
	issuer, err := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, markers)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer unavailable")
	}

	auditSvc := service.NewAuditService(mongo.NewAuditRepository(store.DB), logger.For("audit"))
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, auditSvc, logger.For("audit-dispatcher"))
	dispatcher.Start(context.WithoutCancel(ctx))

	userSvc := service.NewUserService(users, creds, issuer, dispatcher, logger.For("users"))

	e := api.NewRouter(api.Dependencies{
		Users:  userSvc,
		Tokens: issuer,
		Readiness: map[string]handler.Pinger{
			"mongodb": store,
			"redis":   handler.PingFunc(redis.Pinger(rdb)),
		},
		Log: logger.For("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Close()
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongodb close")
	}
	log.Info().Msg("stopped")
}
