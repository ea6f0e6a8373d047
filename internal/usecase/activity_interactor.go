package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
	"github.com/google/uuid"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 50
)

// activityRecorder публикует события активности. Ошибки публикации только
// логируются: основная операция к этому моменту уже выполнена.
type activityRecorder struct {
	publisher ports.ActivityPublisher
	logger    *slog.Logger
}

func (r activityRecorder) record(ctx context.Context, userID uuid.UUID, action domain.ActivityAction, mediaID *int64, kind domain.MediaKind) {
	if r.publisher == nil {
		return
	}
	payload := payloads.ActivityPayload{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     string(action),
		MediaID:    mediaID,
		MediaKind:  string(kind),
		OccurredAt: time.Now().UTC(),
	}
	if err := r.publisher.PublishActivity(ctx, payload); err != nil {
		r.logger.Warn("failed to publish activity",
			"user_id", userID,
			"action", action,
			"error", err,
		)
	}
}

// activityUseCase implements ActivityUseCase
type activityUseCase struct {
	storage ports.ActivityStorage
	logger  *slog.Logger
}

// NewActivityUseCase создает новый экземпляр ActivityUseCase
func NewActivityUseCase(storage ports.ActivityStorage, logger *slog.Logger) ActivityUseCase {
	return &activityUseCase{storage: storage, logger: logger}
}

// Recent возвращает последние события вызывающего, новые сверху.
func (uc *activityUseCase) Recent(ctx context.Context, id auth.Identity, limit int) ([]domain.Activity, error) {
	if limit < 1 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	items, err := uc.storage.ListActivity(ctx, id.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("usecase: list activity: %w", err)
	}
	return items, nil
}

// Record сохраняет событие, полученное из очереди.
// События удалённых пользователей отбрасываются без ошибки.
func (uc *activityUseCase) Record(ctx context.Context, p payloads.ActivityPayload) error {
	if p.ID == uuid.Nil || p.UserID == uuid.Nil || p.Action == "" {
		return domain.InvalidInput("activity event is incomplete")
	}

	a := &domain.Activity{
		ID:        p.ID,
		UserID:    p.UserID,
		Action:    domain.ActivityAction(p.Action),
		MediaID:   p.MediaID,
		CreatedAt: p.OccurredAt,
	}
	if p.MediaKind != "" {
		kind := domain.MediaKind(p.MediaKind)
		a.MediaKind = &kind
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err := uc.storage.SaveActivity(ctx, a)
	if errors.Is(err, domain.ErrNotFound) {
		uc.logger.Info("dropping activity of deleted user", "user_id", p.UserID, "activity_id", p.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("usecase: save activity %s: %w", p.ID, err)
	}
	return nil
}

// Prune удаляет события старше retention.
func (uc *activityUseCase) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, domain.InvalidInput("retention must be positive")
	}
	n, err := uc.storage.PruneActivity(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("usecase: prune activity: %w", err)
	}
	return n, nil
}
