package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/GoArmGo/CineRadar/internal/app"
	"github.com/GoArmGo/CineRadar/internal/config"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/database/client"
	"github.com/GoArmGo/CineRadar/internal/database/memory"
	"github.com/GoArmGo/CineRadar/internal/database/storage"
	"github.com/GoArmGo/CineRadar/internal/handler"
	"github.com/GoArmGo/CineRadar/internal/logger"
	"github.com/GoArmGo/CineRadar/internal/metrics"
	"github.com/GoArmGo/CineRadar/internal/rabbitmq"
	"github.com/GoArmGo/CineRadar/internal/ratelimit"
	"github.com/GoArmGo/CineRadar/internal/security"
	"github.com/GoArmGo/CineRadar/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	return Build(ctx, cfg, slogger)
}

// Build собирает приложение из готовой конфигурации.
// При ошибке уже открытые ресурсы закрываются.
func Build(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (_ *app.App, err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i].Close()
			}
		}
	}()

	// 2. Хранилище
	var store ports.Store
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		slogger.Warn("using in-memory storage, data is lost on restart")
		store = memory.NewStore()
	default:
		dbClient, err := client.NewClient(cfg, slogger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, dbClient)
		store = storage.NewPostgresStorage(dbClient.DB, slogger)
	}

	// 3. Безопасность
	hasher, err := security.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	// 4. RabbitMQ
	var (
		publisher ports.ActivityPublisher
		consumer  ports.ActivityConsumer
	)
	if cfg.RabbitMQ.RabbitMQURL != "" {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, rabbitMQClient)
		publisher = rabbitMQClient
		consumer = rabbitMQClient
	} else {
		slogger.Warn("RABBITMQ_URL is empty, activity events are not published")
		publisher = rabbitmq.NewNoopPublisher(slogger)
	}

	// 5. Ограничение частоты запросов
	var limiter handler.RateLimiter
	if cfg.RedisURL != "" {
		redisClient, err := ratelimit.NewClient(ctx, cfg.RedisURL, slogger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, redisClient)
		l, err := ratelimit.New(redisClient, cfg.AuthRateLimit, cfg.AuthRateWindow, slogger)
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		limiter = l
	} else {
		slogger.Warn("REDIS_URL is empty, auth rate limiting is disabled")
	}

	// 6. Бизнес-логика (usecases)
	deps := app.Deps{
		Store:       store,
		Publisher:   publisher,
		Consumer:    consumer,
		Limiter:     limiter,
		Metrics:     metrics.New(),
		Auth:        usecase.NewAuthUseCase(store, hasher, tokens, publisher, slogger),
		Users:       usecase.NewUserUseCase(store, hasher, publisher, slogger),
		Watchlist:   usecase.NewWatchlistUseCase(store, publisher, slogger),
		Preferences: usecase.NewPreferencesUseCase(store, publisher, slogger),
		Activity:    usecase.NewActivityUseCase(store, slogger),
		Closers:     closers,
	}

	slogger.Info("all dependencies initialized",
		"storage", cfg.StorageDriver,
		"rabbitmq", consumer != nil,
		"rate_limit", limiter != nil,
	)
	return app.NewApp(cfg, slogger, deps), nil
}
