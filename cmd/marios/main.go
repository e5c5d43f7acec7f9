// Package main запускает HTTP-сервер пиццерии.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/config"
	"github.com/mmeshcher/marios-pizza/internal/handler"
	"github.com/mmeshcher/marios-pizza/internal/middleware"
	"github.com/mmeshcher/marios-pizza/internal/repository"
	"github.com/mmeshcher/marios-pizza/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	c, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		sugar.Fatalw("catalog loading error", "error", err.Error(), "path", cfg.CatalogPath)
	}

	loc, err := time.LoadLocation(cfg.ReceiptTimezone)
	if err != nil {
		sugar.Fatalw("receipt timezone error", "error", err.Error(), "timezone", cfg.ReceiptTimezone)
	}

	var store service.Store
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		store = repo
	} else {
		sugar.Info("DATABASE_URI is empty, using in-memory store")
		store = repository.NewMemoryRepository()
	}

	svc := service.NewService(store, c, logger,
		service.WithPlacementDelay(cfg.PlacementDelay),
		service.WithSessionTTL(cfg.SessionTTL),
	)
	defer svc.Close()

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is empty, sessions will not survive restart")
	}
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, sessionMiddleware, loc)

	r := h.SetupRouter(cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting marios pizza server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
