package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
)

// SaveActivity сохраняет событие. Повторная доставка того же события ничего не меняет.
func (s *PostgresStorage) SaveActivity(ctx context.Context, activity *domain.Activity) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO activity (id, user_id, action, media_id, media_kind, created_at)
		VALUES (:id, :user_id, :action, :media_id, :media_kind, :created_at)
		ON CONFLICT (id) DO NOTHING
	`, activity)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to save activity",
			"activity_id", activity.ID,
			"user_id", activity.UserID,
			"error", err,
		)
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivity возвращает последние события пользователя, новые сверху.
func (s *PostgresStorage) ListActivity(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Activity, error) {
	out := []domain.Activity{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, action, media_id, media_kind, created_at
		FROM activity
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		s.logger.Error("failed to list activity", "user_id", userID, "error", err)
		return nil, fmt.Errorf("select activity: %w", err)
	}
	return out, nil
}

// PruneActivity удаляет события старше before.
func (s *PostgresStorage) PruneActivity(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()

	res, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE created_at < $1`, before)
	if err != nil {
		s.logger.Error("failed to prune activity", "before", before, "error", err)
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	s.logger.Info("activity pruned",
		"deleted", n,
		"before", before,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}
