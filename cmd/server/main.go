package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/config"
	"github.com/avelat/melodex/internal/database"
	"github.com/avelat/melodex/internal/handler"
	"github.com/avelat/melodex/internal/middleware"
	"github.com/avelat/melodex/internal/model"
	"github.com/avelat/melodex/internal/queue"
	"github.com/avelat/melodex/internal/repository"
	"github.com/avelat/melodex/internal/router"
	queue_publisher "github.com/avelat/melodex/internal/service"
	"github.com/avelat/melodex/internal/spotify"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	setupLogger(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database migration failed")
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: state checks, caching and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	states := repository.NewStateStore(rdb, cfg.StateTTL)
	sp := spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI,
		cfg.SpotifyAccountsURL, cfg.SpotifyAPIURL)

	evaluator := auth.NewEvaluator(users, cfg.JWTSecret)
	refresher := auth.NewRefresher(users, sp)
	refresher.OnRefreshed = func(ctx context.Context, u *model.User, rotated bool) {
		_ = queue_publisher.PublishTokenRefreshed(ctx, queue.TokenRefreshedEvent{
			SpotifyID:   u.SpotifyID,
			ExpiresAt:   u.TokenExpiresAt.Format(time.RFC3339),
			Rotated:     rotated,
			RefreshedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	go func() {
		if err := queue.StartAuthEventConsumer(); err != nil {
			log.Warn().Err(err).Msg("auth event consumer stopped")
		}
	}()

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewSearchCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, users, states, sp)
	musicHandler := handler.NewMusicHandler(sp)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, evaluator, refresher, limiter)
	router.RegisterMusic(e, musicHandler, evaluator, refresher, cache)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func setupLogger(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
