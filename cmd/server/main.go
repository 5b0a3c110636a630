package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hailaprogramare/contest-backend/internal/api"
	"github.com/hailaprogramare/contest-backend/internal/auth"
	"github.com/hailaprogramare/contest-backend/internal/config"
	"github.com/hailaprogramare/contest-backend/internal/db"
	"github.com/hailaprogramare/contest-backend/internal/repository"
	"github.com/hailaprogramare/contest-backend/internal/service"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	auth.TokenSecretKey = cfg.TokenAuthSecret

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	logger.Info("database connection established")

	if err = db.Migrate(pool); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	logger.Info("database schema ready")

	transactor := db.NewPgxTransactor(pool)

	teamRepo := repository.NewPgxTeamRepository(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)
	flagRepo := repository.NewPgxFlagRepository(pool)

	team := service.NewTeamService(transactor).WithTeamRepo(teamRepo).WithMemberRepo(memberRepo).WithFlagRepo(flagRepo)
	flags := service.NewFlagService().WithFlagRepo(flagRepo)
	admin := service.NewAdminService().WithTeamRepo(teamRepo).WithMemberRepo(memberRepo).WithFlagRepo(flagRepo)

	healthChecker := api.MustNewHealthChecker(health.Config{
		Name:    "postgres",
		Timeout: 2 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	e := echo.New()

	handler := api.NewHandler(logger).
		WithTeamService(team).
		WithFlagService(flags).
		WithAdminService(admin).
		WithIdentityVerifier(auth.NewGoogleVerifier(cfg.GoogleClientID)).
		WithHealthChecker(healthChecker).
		WithStaticDir(cfg.StaticDir).
		WithRequestTimeout(cfg.RequestTimeout)

	handler.RegisterRoutes(e)

	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err = e.Start(cfg.HTTPAddr); err != nil {
		logger.Info("server stopped", zap.Error(err))
	}
}
