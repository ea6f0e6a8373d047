package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const pruneTimeout = 5 * time.Minute

// runWorker потребляет события активности из RabbitMQ и по расписанию
// удаляет устаревшие.
func (a *App) runWorker(ctx context.Context) error {
	if a.consumer == nil {
		return errors.New("worker mode requires RABBITMQ_URL")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.consumer.StartConsumingActivity(gctx, a.handleActivity); err != nil {
			return fmt.Errorf("start activity consumer: %w", err)
		}
		a.logger.Info("worker started, waiting for activity events")
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		scheduler := cron.New(cron.WithLogger(cronLogger{a.logger}))
		if _, err := scheduler.AddFunc(a.Config.ActivityPruneSchedule, func() { a.pruneActivity(gctx) }); err != nil {
			return fmt.Errorf("schedule activity pruning: %w", err)
		}
		scheduler.Start()
		a.logger.Info("activity pruning scheduled",
			"schedule", a.Config.ActivityPruneSchedule,
			"retention", a.Config.ActivityRetention.String(),
		)

		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	err := g.Wait()
	a.logger.Info("worker stopped")
	return err
}

func (a *App) handleActivity(ctx context.Context, payload payloads.ActivityPayload) error {
	start := time.Now()
	if err := a.activityUseCase.Record(ctx, payload); err != nil {
		return err
	}
	a.logger.Debug("activity recorded",
		"activity_id", payload.ID,
		"action", payload.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (a *App) pruneActivity(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	start := time.Now()
	n, err := a.activityUseCase.Prune(ctx, a.Config.ActivityRetention)
	if err != nil {
		a.logger.Error("failed to prune activity", "error", err)
		return
	}
	a.logger.Info("activity pruned", "deleted", n, "duration_ms", time.Since(start).Milliseconds())
}

// cronLogger направляет журнал планировщика в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
