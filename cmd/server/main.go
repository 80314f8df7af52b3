package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/clock"
	"github.com/iliyamo/quizgen/internal/config"
	"github.com/iliyamo/quizgen/internal/database"
	"github.com/iliyamo/quizgen/internal/generation"
	"github.com/iliyamo/quizgen/internal/handler"
	"github.com/iliyamo/quizgen/internal/middleware"
	"github.com/iliyamo/quizgen/internal/queue"
	"github.com/iliyamo/quizgen/internal/quota"
	"github.com/iliyamo/quizgen/internal/repository"
	"github.com/iliyamo/quizgen/internal/router"
	"github.com/iliyamo/quizgen/internal/service"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := setupLogger(cfg.Env)
	log.Info("starting quizgen", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate", slog.Any("error", err))
		os.Exit(1)
	}

	clk := clock.Real()
	store := repository.NewStore(db)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL(), clk)
	ledger := quota.NewLedger(clk, cfg.QuotaAllowance, cfg.QuotaWindow)
	oracle := generation.NewGemini(&http.Client{Timeout: cfg.OracleTimeout + 5*time.Second},
		cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleAPIKey)
	pipeline := generation.NewPipeline(oracle, cfg.OracleTimeout, log)

	svc := service.New(service.Config{
		BcryptCost:       cfg.BcryptCost,
		MaxQuestions:     cfg.MaxQuestions,
		ResultOwnerCheck: cfg.QuizResultOwnerCheck,
	}, store, issuer, ledger, pipeline, clk, log)
	if cfg.RefreshRevocation {
		svc.Tokens = store
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and history cache disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)
	svc.Cache = cache

	if cfg.EventsEnabled {
		svc.Events = queue.NewPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EventsLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", slog.Any("error", err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.Use(e, router.Options{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxDocumentBytes + 1<<20,
		Log:          log,
	})
	router.Register(e, router.Deps{
		Auth:             handler.NewAuthHandler(svc, cfg.CookieSecure, log),
		Quiz:             handler.NewQuizHandler(svc, cfg.MaxDocumentBytes, log),
		Issuer:           issuer,
		DB:               db,
		RateLimit:        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:            cache.Middleware(),
		ResultOwnerCheck: cfg.QuizResultOwnerCheck,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default: // prod
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
