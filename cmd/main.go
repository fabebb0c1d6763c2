package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/karthicware/ultra-bms-sub008/config"
	"github.com/karthicware/ultra-bms-sub008/db"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/blacklist"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/handler"
	repo "github.com/karthicware/ultra-bms-sub008/internal/auth/repository/postgres"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/service"
	"github.com/karthicware/ultra-bms-sub008/internal/metrics"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbPool.Close()

	tokenBlacklist := newBlacklist(ctx, cfg)
	if closer, ok := tokenBlacklist.(io.Closer); ok {
		defer closer.Close()
	}

	metrics.Init(prometheus.DefaultRegisterer)

	userRepo := repo.NewUserRepository(dbPool)
	sessionRepo := repo.NewSessionRepository(dbPool)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	userService := service.NewUserService(userRepo, sessionRepo, tokenBlacklist, tokenService, cfg)
	authHandler := handler.NewAuthHandler(userService, tokenService, cfg)

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	handler.RegisterRoutes(app, authHandler)

	go sweepExpiredSessions(ctx, sessionRepo)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("auth service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// newBlacklist prefers Redis so revocations survive restarts and are shared
// across replicas. Without Redis a process-local blacklist still honors
// logout within this instance.
func newBlacklist(ctx context.Context, cfg *config.Config) domain.TokenBlacklist {
	if cfg.RedisAddr == "" {
		return blacklist.NewMemoryBlacklist()
	}

	redisClient, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, falling back to in-memory blacklist")
		return blacklist.NewMemoryBlacklist()
	}

	return blacklist.NewRedisBlacklist(redisClient)
}

// sweepExpiredSessions deletes sessions past their hard expiry once an hour.
// Revoked rows survive until that point so a replayed refresh token still
// resolves to a revoked session instead of nothing.
func sweepExpiredSessions(ctx context.Context, sessions domain.SessionRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to sweep expired sessions")
				continue
			}

			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("swept expired sessions")
			}
		}
	}
}
