// Package ratelimit ограничивает частоту запросов фиксированным окном в Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cineradar:ratelimit:"

// Result: решение лимитера по одному запросу.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter считает запросы в окне фиксированной длины. Ключ окна содержит его
// номер, поэтому счётчик сбрасывается сам при смене окна.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New создаёт лимитер поверх готового клиента Redis.
func New(client redis.Cmdable, limit int, window time.Duration, logger *slog.Logger) (*Limiter, error) {
	if limit < 1 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if window < time.Second {
		return nil, fmt.Errorf("rate limit window must be at least 1s, got %s", window)
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: logger,
	}, nil
}

// NewClient подключается к Redis по URL вида redis://host:port/db и проверяет соединение.
func NewClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to Redis", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// WithClock подменяет источник времени (для тестов).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	cp := *l
	cp.now = now
	return &cp
}

// Allow учитывает запрос по ключу и сообщает, укладывается ли он в лимит.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowIdx := now.UnixNano() / int64(l.window)
	windowEnd := time.Unix(0, (windowIdx+1)*int64(l.window))
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(windowIdx, 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
	}
	if !res.Allowed {
		res.RetryAfter = windowEnd.Sub(now)
		l.logger.Warn("rate limit exceeded", "key", key, "count", count, "limit", l.limit)
	}
	return res, nil
}
