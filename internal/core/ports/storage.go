package ports

import (
	"context"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
)

// UserStorage определяет методы для взаимодействия с хранилищем пользователей.
// Методы поиска возвращают (nil, nil), если пользователь не найден.
type UserStorage interface {
	// CreateUser сохраняет пользователя и его пустые предпочтения в одной транзакции.
	// Занятый email даёт domain.ErrEmailTaken.
	CreateUser(ctx context.Context, user *domain.User, prefs *domain.Preferences) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// DeleteUser удаляет пользователя вместе со всеми его ресурсами атомарно.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// WatchlistStorage определяет методы для работы со списком просмотра
type WatchlistStorage interface {
	// AddToWatchlist вставляет запись. Дубликат даёт domain.ErrAlreadyInList.
	AddToWatchlist(ctx context.Context, entry *domain.WatchlistEntry) error
	WatchlistEntryExists(ctx context.Context, userID uuid.UUID, mediaID int64, kind domain.MediaKind) (bool, error)
	// RemoveFromWatchlist удаляет записи по mediaID. kind == nil удаляет все типы.
	RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, mediaID int64, kind *domain.MediaKind) (int64, error)
	ListWatchlist(ctx context.Context, userID uuid.UUID, page, perPage int) ([]domain.WatchlistEntry, int, error)
	WatchlistStats(ctx context.Context, userID uuid.UUID) (*domain.WatchlistStats, error)
}

// PreferencesStorage определяет методы для работы с предпочтениями
type PreferencesStorage interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error
}

// ActivityStorage определяет методы для ленты активности
type ActivityStorage interface {
	// SaveActivity идемпотентна по ID события, повторная доставка ничего не меняет.
	SaveActivity(ctx context.Context, activity *domain.Activity) error
	ListActivity(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Activity, error)
	// PruneActivity удаляет события старше before и возвращает их число.
	PruneActivity(ctx context.Context, before time.Time) (int64, error)
}

// Store объединяет все хранилища одного бэкенда.
type Store interface {
	UserStorage
	WatchlistStorage
	PreferencesStorage
	ActivityStorage
	Ping(ctx context.Context) error
}
