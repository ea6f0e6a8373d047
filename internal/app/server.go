package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GoArmGo/CineRadar/internal/handler"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// newRouter собирает HTTP API из зависимостей приложения.
func (a *App) newRouter() http.Handler {
	return handler.NewRouter(handler.Deps{
		Auth:              a.authUseCase,
		Users:             a.userUseCase,
		Watchlist:         a.watchlistUseCase,
		Preferences:       a.preferencesUseCase,
		Activity:          a.activityUseCase,
		Store:             a.store,
		Limiter:           a.limiter,
		Metrics:           a.metrics,
		RequestTimeout:    a.Config.RequestTimeout,
		TrustProxyHeaders: a.Config.TrustProxyHeaders,
		Logger:            a.logger,
	})
}

// runServer запускает HTTP сервер и останавливает его по отмене ctx.
func (a *App) runServer(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.Config.ServerPort),
		Handler:           a.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down HTTP server", "timeout", shutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		a.logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
