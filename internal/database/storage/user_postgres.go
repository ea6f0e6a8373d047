package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresStorage реализует ports.Store поверх PostgreSQL с помощью sqlx
type PostgresStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStorage создает новый экземпляр PostgresStorage
func NewPostgresStorage(db *sqlx.DB, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// Ping проверяет доступность базы данных.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, email, name, password_hash, bio, avatar_url, created_at, updated_at`

// CreateUser сохраняет пользователя и его предпочтения в одной транзакции.
func (s *PostgresStorage) CreateUser(ctx context.Context, user *domain.User, prefs *domain.Preferences) error {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, bio, avatar_url, created_at, updated_at)
		VALUES (:id, :email, :name, :password_hash, :bio, :avatar_url, :created_at, :updated_at)
	`, user)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrEmailTaken) {
			s.logger.Warn("email already registered", "user_id", user.ID)
			return err
		}
		s.logger.Error("failed to insert user", "user_id", user.ID, "error", err)
		return fmt.Errorf("insert user: %w", err)
	}

	if prefs != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO preferences (user_id, genre_ids, language, updated_at)
			VALUES ($1, $2, $3, $4)
		`, user.ID, genreArray(prefs.GenreIDs), prefs.Language, user.CreatedAt)
		if err != nil {
			s.logger.Error("failed to insert default preferences", "user_id", user.ID, "error", err)
			return fmt.Errorf("insert preferences: %w", translateError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", translateError(err))
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetUserByID получает пользователя по ID. Отсутствие пользователя: (nil, nil).
func (s *PostgresStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("failed to get user by id", "user_id", id, "error", err)
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &user, nil
}

// GetUserByEmail получает пользователя по email без учета регистра.
func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		domain.NormalizeEmail(email),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("failed to get user by email", "error", err)
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return &user, nil
}

// UpdateProfile обновляет имя, email, био и аватар пользователя.
func (s *PostgresStorage) UpdateProfile(ctx context.Context, user *domain.User) error {
	start := time.Now()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE users
		SET name = :name, email = :email, bio = :bio, avatar_url = :avatar_url, updated_at = :updated_at
		WHERE id = :id
	`, user)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrEmailTaken) {
			return err
		}
		s.logger.Error("failed to update profile", "user_id", user.ID, "error", err)
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("user")
	}

	s.logger.Info("profile updated",
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// UpdatePasswordHash заменяет хеш пароля пользователя.
func (s *PostgresStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, time.Now().UTC(), id,
	)
	if err != nil {
		s.logger.Error("failed to update password", "user_id", id, "error", err)
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("user")
	}
	s.logger.Info("password updated", "user_id", id)
	return nil
}

// DeleteUser удаляет пользователя и все его ресурсы в одной транзакции.
func (s *PostgresStorage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM activity WHERE user_id = $1`,
		`DELETE FROM watchlist WHERE user_id = $1`,
		`DELETE FROM preferences WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			s.logger.Error("failed to delete user data", "user_id", id, "error", err)
			return fmt.Errorf("delete user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}

	s.logger.Info("user deleted",
		"user_id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
