package usecase

import (
	"context"
	"time"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
	"github.com/google/uuid"
)

// RegisterInput: данные для регистрации нового пользователя
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Session: результат регистрации или входа: пользователь и токен доступа.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthUseCase определяет интерфейс для регистрации, входа и проверки токенов
type AuthUseCase interface {
	// Register создаёт пользователя с пустыми предпочтениями и выдаёт токен.
	// Занятый email даёт domain.ErrEmailTaken.
	Register(ctx context.Context, in RegisterInput) (*Session, error)

	// Login проверяет email и пароль. Неизвестный email и неверный пароль
	// дают одну и ту же ошибку domain.ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Authenticate проверяет токен и существование его владельца.
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// ProfileInput: изменяемые поля профиля
type ProfileInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// UserUseCase определяет интерфейс для работы с профилем пользователя
type UserUseCase interface {
	// GetProfile возвращает профиль. Email раскрывается только владельцу.
	GetProfile(ctx context.Context, caller auth.Identity, id uuid.UUID) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id auth.Identity, in ProfileInput) (*domain.Profile, error)
	// ChangePassword требует текущий пароль. Неверный текущий: domain.ErrInvalidCredentials.
	ChangePassword(ctx context.Context, id auth.Identity, current, next string) error
	// DeleteAccount удаляет пользователя и все его ресурсы.
	DeleteAccount(ctx context.Context, id auth.Identity) error
}

// AddInput: данные для добавления медиа в список просмотра
type AddInput struct {
	MediaID   int64            `json:"mediaId"`
	MediaKind domain.MediaKind `json:"mediaKind"`
	Title     string           `json:"title"`
	Poster    string           `json:"poster"`
}

// WatchlistUseCase определяет интерфейс для списка просмотра вызывающего
type WatchlistUseCase interface {
	Add(ctx context.Context, id auth.Identity, in AddInput) (*domain.WatchlistEntry, error)
	// Remove идемпотентен: удаление отсутствующей записи не ошибка.
	Remove(ctx context.Context, id auth.Identity, mediaID int64, kind *domain.MediaKind) error
	List(ctx context.Context, id auth.Identity, page, limit int) (*domain.Page[domain.WatchlistEntry], error)
	Stats(ctx context.Context, id auth.Identity) (*domain.WatchlistStats, error)
}

// PreferencesUseCase определяет интерфейс для предпочтений вызывающего
type PreferencesUseCase interface {
	// Get возвращает пустые предпочтения, если записи ещё нет.
	Get(ctx context.Context, id auth.Identity) (*domain.Preferences, error)
	// Set полностью заменяет предпочтения. Неизвестный жанр даёт UNKNOWN_GENRE.
	Set(ctx context.Context, id auth.Identity, genreIDs []int, language string) (*domain.Preferences, error)
}

// ActivityUseCase определяет интерфейс для ленты активности
type ActivityUseCase interface {
	Recent(ctx context.Context, id auth.Identity, limit int) ([]domain.Activity, error)
	// Record сохраняет событие из очереди. Вызывается воркером.
	Record(ctx context.Context, payload payloads.ActivityPayload) error
	// Prune удаляет события старше retention.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}
