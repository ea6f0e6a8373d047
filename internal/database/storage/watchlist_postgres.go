package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
)

// AddToWatchlist добавляет запись в список просмотра.
// Повтор пары (медиа, тип) у того же пользователя даёт domain.ErrAlreadyInList.
func (s *PostgresStorage) AddToWatchlist(ctx context.Context, entry *domain.WatchlistEntry) error {
	start := time.Now()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO watchlist (user_id, media_id, media_kind, title, poster_path, created_at)
		VALUES (:user_id, :media_id, :media_kind, :title, :poster_path, :created_at)
	`, entry)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrAlreadyInList) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to add watchlist entry",
			"user_id", entry.UserID,
			"media_id", entry.MediaID,
			"error", err,
		)
		return fmt.Errorf("insert watchlist entry: %w", err)
	}

	s.logger.Info("watchlist entry added",
		"user_id", entry.UserID,
		"media_id", entry.MediaID,
		"media_kind", entry.MediaKind,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// WatchlistEntryExists проверяет наличие записи в списке просмотра
func (s *PostgresStorage) WatchlistEntryExists(ctx context.Context, userID uuid.UUID, mediaID int64, kind domain.MediaKind) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM watchlist WHERE user_id = $1 AND media_id = $2 AND media_kind = $3
		)
	`, userID, mediaID, kind)
	if err != nil {
		return false, fmt.Errorf("check watchlist entry: %w", err)
	}
	return exists, nil
}

// RemoveFromWatchlist удаляет запись. Без kind удаляются записи обоих типов.
// Возвращает число удалённых строк.
func (s *PostgresStorage) RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, mediaID int64, kind *domain.MediaKind) (int64, error) {
	query := `DELETE FROM watchlist WHERE user_id = $1 AND media_id = $2`
	args := []any{userID, mediaID}
	if kind != nil {
		query += ` AND media_kind = $3`
		args = append(args, *kind)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to remove watchlist entry", "user_id", userID, "media_id", mediaID, "error", err)
		return 0, fmt.Errorf("delete watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListWatchlist возвращает страницу списка просмотра (новые сверху) и общее число записей.
// Подсчёт и выборка идут в одном снимке, чтобы total совпадал со страницей.
func (s *PostgresStorage) ListWatchlist(ctx context.Context, userID uuid.UUID, page, perPage int) ([]domain.WatchlistEntry, int, error) {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin watchlist read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM watchlist WHERE user_id = $1`, userID); err != nil {
		s.logger.Error("failed to count watchlist", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("count watchlist: %w", err)
	}

	entries := []domain.WatchlistEntry{}
	offset := (page - 1) * perPage
	if offset < total {
		err = tx.SelectContext(ctx, &entries, `
			SELECT user_id, media_id, media_kind, title, poster_path, created_at
			FROM watchlist
			WHERE user_id = $1
			ORDER BY created_at DESC, media_id DESC
			LIMIT $2 OFFSET $3
		`, userID, perPage, offset)
		if err != nil {
			s.logger.Error("failed to list watchlist", "user_id", userID, "error", err)
			return nil, 0, fmt.Errorf("select watchlist: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit watchlist read: %w", err)
	}

	s.logger.Debug("watchlist page loaded",
		"user_id", userID,
		"page", page,
		"count", len(entries),
		"total", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return entries, total, nil
}

// WatchlistStats считает записи пользователя по типам медиа.
func (s *PostgresStorage) WatchlistStats(ctx context.Context, userID uuid.UUID) (*domain.WatchlistStats, error) {
	var st domain.WatchlistStats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			COUNT(*) FILTER (WHERE media_kind = 'movie')  AS movies,
			COUNT(*) FILTER (WHERE media_kind = 'series') AS series,
			COUNT(*) AS total
		FROM watchlist
		WHERE user_id = $1
	`, userID)
	if err != nil {
		s.logger.Error("failed to compute watchlist stats", "user_id", userID, "error", err)
		return nil, fmt.Errorf("watchlist stats: %w", err)
	}
	return &st, nil
}
