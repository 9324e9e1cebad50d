package main

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

	"github.com/agentfs/agentfs/internal/config"
	"github.com/agentfs/agentfs/internal/handler"
	"github.com/agentfs/agentfs/internal/middleware"
	"github.com/agentfs/agentfs/internal/service"
	"github.com/agentfs/agentfs/pkg/database"
	"github.com/agentfs/agentfs/pkg/database/postgres"
	"github.com/agentfs/agentfs/pkg/database/sqlite"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
	"github.com/agentfs/agentfs/pkg/logging/slogpretty"
)

const (
	configPath      = "configs/config.yaml"
	shutdownTimeout = 10 * time.Second

	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad(configPath)

	logger := setupLogger(cfg.App.Env)

	// Root context
	ctx := context.Background()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	logger.Info("Starting agentfs server",
		slog.String("env", cfg.App.Env),
		slog.String("agent_id", cfg.Agent.ID),
		slog.String("mount_path", cfg.Agent.MountPath),
		slog.String("driver", cfg.Database.Driver))

	db := setupStorage(ctx, cfg, logger)
	defer db.Close()

	agent := service.NewAgentFS(db, cfg.Agent.ID, cfg.Agent.MountPath)

	mux := http.NewServeMux()
	h := handler.NewHandler(agent)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.RequestIDMiddleware(withLogger(logger, mux)),
		ReadTimeout:  cfg.App.DefaultTimeout,
		WriteTimeout: cfg.App.DefaultTimeout,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slogext.Err(err))
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slogext.Err(err))
	}
}

// bootstrapper is satisfied by both backends: schema creation plus the
// root inode seed.
type bootstrapper interface {
	database.Store
	Bootstrap(ctx context.Context) error
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) database.Store {
	var db bootstrapper

	switch cfg.Database.Driver {
	case "postgres":
		db = postgres.MustNew(ctx, cfg.Database)
	case "sqlite":
		db = sqlite.MustNew(ctx, cfg.Database.Path)
	default:
		logger.Error("Unknown database driver", slog.String("driver", cfg.Database.Driver))
		os.Exit(1)
	}

	if err := db.Bootstrap(ctx); err != nil {
		logger.Error("Schema bootstrap failed", slogext.Err(err))
		os.Exit(1)
	}

	return db
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return setupPrettySlog()
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// withLogger attaches the process logger to every request context so
// handlers and services pick it up via logging.GetLoggerFromContext.
func withLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.MakeContextWithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
