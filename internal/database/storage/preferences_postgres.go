package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// preferencesRow: строка таблицы preferences. genre_ids хранится как INTEGER[].
type preferencesRow struct {
	UserID    uuid.UUID     `db:"user_id"`
	GenreIDs  pq.Int64Array `db:"genre_ids"`
	Language  string        `db:"language"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func genreArray(ids []int) pq.Int64Array {
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// GetPreferences возвращает предпочтения пользователя или (nil, nil), если записи нет.
func (s *PostgresStorage) GetPreferences(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	var row preferencesRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, genre_ids, language, updated_at
		FROM preferences
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("failed to get preferences", "user_id", userID, "error", err)
		return nil, fmt.Errorf("select preferences: %w", err)
	}

	prefs := &domain.Preferences{
		UserID:    row.UserID,
		GenreIDs:  make([]int, len(row.GenreIDs)),
		Language:  row.Language,
		UpdatedAt: row.UpdatedAt,
	}
	for i, id := range row.GenreIDs {
		prefs.GenreIDs[i] = int(id)
	}
	return prefs, nil
}

// UpsertPreferences полностью заменяет предпочтения пользователя.
func (s *PostgresStorage) UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error {
	start := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, genre_ids, language, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET genre_ids = EXCLUDED.genre_ids,
		    language = EXCLUDED.language,
		    updated_at = EXCLUDED.updated_at
	`, prefs.UserID, genreArray(prefs.GenreIDs), prefs.Language, prefs.UpdatedAt)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to upsert preferences", "user_id", prefs.UserID, "error", err)
		return fmt.Errorf("upsert preferences: %w", err)
	}

	s.logger.Info("preferences saved",
		"user_id", prefs.UserID,
		"genres", len(prefs.GenreIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
