package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/security"
	"github.com/google/uuid"
)

// authUseCase implements AuthUseCase
type authUseCase struct {
	users    ports.UserStorage
	hasher   *security.PasswordHasher
	tokens   *security.TokenCodec
	activity activityRecorder
	logger   *slog.Logger
}

// NewAuthUseCase создает новый экземпляр AuthUseCase.
// publisher может быть nil, тогда события активности не публикуются.
func NewAuthUseCase(
	users ports.UserStorage,
	hasher *security.PasswordHasher,
	tokens *security.TokenCodec,
	publisher ports.ActivityPublisher,
	logger *slog.Logger,
) AuthUseCase {
	return &authUseCase{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		activity: activityRecorder{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// Register проверяет ввод до обращения к хранилищу, затем проверяет email,
// хеширует пароль и сохраняет пользователя вместе с пустыми предпочтениями.
// Гонку двух регистраций разрешает уникальный индекс хранилища.
func (uc *authUseCase) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	existing, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("usecase: lookup email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	prefs := domain.DefaultPreferences(user.ID)
	prefs.UpdatedAt = now

	if err := uc.users.CreateUser(ctx, user, prefs); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("usecase: create user: %w", err)
	}

	session, err := uc.issue(user)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", "user_id", user.ID)
	uc.activity.record(ctx, user.ID, domain.ActionRegistered, nil, "")
	return session, nil
}

// Login не раскрывает, какая из половин (email или пароль) неверна.
func (uc *authUseCase) Login(ctx context.Context, email, password string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.InvalidInput("email and password are required")
	}

	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("usecase: lookup user: %w", err)
	}
	if user == nil {
		uc.hasher.VerifyDummy(password)
		return nil, domain.ErrInvalidCredentials
	}
	if !uc.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := uc.issue(user)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// Authenticate: токен -> подпись и срок -> существующий пользователь.
func (uc *authUseCase) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, domain.ErrMissingToken
	}

	claims, err := uc.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, domain.ErrInvalidToken.WithCause(err)
	}

	user, err := uc.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("usecase: resolve token subject: %w", err)
	}
	if user == nil {
		return auth.Identity{}, domain.ErrUserNotFound
	}
	return auth.Identity{UserID: user.ID, Email: user.Email}, nil
}

func (uc *authUseCase) issue(user *domain.User) (*Session, error) {
	token, exp, err := uc.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("usecase: issue token: %w", err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}
