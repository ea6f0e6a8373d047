package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/CineRadar/internal/config"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/handler"
	"github.com/GoArmGo/CineRadar/internal/metrics"
	"github.com/GoArmGo/CineRadar/internal/usecase"
)

const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// App собирает зависимости обоих режимов запуска и владеет их ресурсами.
type App struct {
	Config *config.Config
	logger *slog.Logger

	store     ports.Store
	publisher ports.ActivityPublisher
	// consumer == nil, если RabbitMQ не настроен.
	consumer ports.ActivityConsumer
	limiter  handler.RateLimiter
	metrics  *metrics.Metrics

	authUseCase        usecase.AuthUseCase
	userUseCase        usecase.UserUseCase
	watchlistUseCase   usecase.WatchlistUseCase
	preferencesUseCase usecase.PreferencesUseCase
	activityUseCase    usecase.ActivityUseCase

	// closers закрываются в обратном порядке при завершении.
	closers []io.Closer
}

// Deps: зависимости для NewApp.
type Deps struct {
	Store       ports.Store
	Publisher   ports.ActivityPublisher
	Consumer    ports.ActivityConsumer
	Limiter     handler.RateLimiter
	Metrics     *metrics.Metrics
	Auth        usecase.AuthUseCase
	Users       usecase.UserUseCase
	Watchlist   usecase.WatchlistUseCase
	Preferences usecase.PreferencesUseCase
	Activity    usecase.ActivityUseCase
	Closers     []io.Closer
}

func NewApp(cfg *config.Config, logger *slog.Logger, d Deps) *App {
	return &App{
		Config:             cfg,
		logger:             logger,
		store:              d.Store,
		publisher:          d.Publisher,
		consumer:           d.Consumer,
		limiter:            d.Limiter,
		metrics:            d.Metrics,
		authUseCase:        d.Auth,
		userUseCase:        d.Users,
		watchlistUseCase:   d.Watchlist,
		preferencesUseCase: d.Preferences,
		activityUseCase:    d.Activity,
		closers:            d.Closers,
	}
}

// LoggerIns возвращает основной логгер приложения.
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в выбранном режиме и блокируется до сигнала завершения.
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting application", "mode", mode)

	var err error
	switch mode {
	case ModeServer:
		err = a.runServer(ctx)
	case ModeWorker:
		err = a.runWorker(ctx)
	default:
		err = fmt.Errorf("unknown mode %q (use %q or %q)", mode, ModeServer, ModeWorker)
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("failed to release resources", "error", closeErr)
	}
	if err != nil {
		return err
	}
	a.logger.Info("application stopped")
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
