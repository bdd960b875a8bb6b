package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/smokeking/smokeking-api/internal/api/http"
	"github.com/smokeking/smokeking-api/internal/api/http/handlers"
	"github.com/smokeking/smokeking-api/internal/auth"
	"github.com/smokeking/smokeking-api/internal/config"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/observability"
	"github.com/smokeking/smokeking-api/internal/persistence"
	"github.com/smokeking/smokeking-api/internal/repository"
	"github.com/smokeking/smokeking-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	repos := repository.New(pool)
	transactor := repository.NewTransactor(pool)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), auth.WithIssuer(cfg.Auth.JWTIssuer))
	limiter := auth.NewLoginLimiter(redis.Client, cfg.Auth.MaxLoginAttempts, cfg.Auth.LoginLockout())

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.Users,
		Tokens:   tokens,
		Limiter:  limiter,
		Logger:   logger,
	})
	adminService := service.NewAdminService(repos.Users, logger)
	membershipService := service.NewMembershipService(service.MembershipDependencies{
		Repos:      repos,
		Transactor: transactor,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	coachingService := service.NewCoachingService(service.CoachingDependencies{
		UserRepo:        repos.Users,
		AppointmentRepo: repos.Appointments,
		MessageRepo:     repos.Messages,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	surveyService := service.NewSurveyService(repos.Surveys)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(adminService),
		Membership:     handlers.NewMembershipHandler(membershipService),
		Coaching:       handlers.NewCoachingHandler(coachingService),
		Survey:         handlers.NewSurveyHandler(surveyService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.Users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	requests, failures := metrics.Snapshot()
	logger.Info("server stopped", zap.Int("routes_seen", len(requests)), zap.Int("error_kinds", len(failures)))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
