package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-app-console/internal/config"
	"go-app-console/internal/crypto"
	"go-app-console/internal/database"
	"go-app-console/internal/handler"
	"go-app-console/internal/middleware"
	"go-app-console/internal/repository"
	"go-app-console/internal/router"
	"go-app-console/internal/service"
	"go-app-console/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	slog.Info("database ready")

	envelopeCipher, err := crypto.NewCipher(cfg.EnvelopeSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize envelope cipher: %w", err)
	}
	tokenService := token.New(cfg.JWTSecret, cfg.UserTokenTTL)

	authService := service.NewAuthService(userRepo, tokenService, envelopeCipher)
	userService := service.NewUserService(userRepo)
	applicationService := service.NewApplicationService(applicationRepo, tokenService, envelopeCipher, cfg.APIKeyPrefix)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appKeyMiddleware := middleware.NewAppKeyMiddleware(applicationService)

	appRouter := router.New(cfg, authMiddleware, appKeyMiddleware, router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		User:        handler.NewUserHandler(userService),
		Application: handler.NewApplicationHandler(applicationService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
