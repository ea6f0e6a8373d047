package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/security"
	"github.com/google/uuid"
)

// userUseCase implements UserUseCase
type userUseCase struct {
	users    ports.UserStorage
	hasher   *security.PasswordHasher
	activity activityRecorder
	logger   *slog.Logger
}

// NewUserUseCase создает новый экземпляр UserUseCase
func NewUserUseCase(
	users ports.UserStorage,
	hasher *security.PasswordHasher,
	publisher ports.ActivityPublisher,
	logger *slog.Logger,
) UserUseCase {
	return &userUseCase{
		users:    users,
		hasher:   hasher,
		activity: activityRecorder{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

func (uc *userUseCase) GetProfile(ctx context.Context, caller auth.Identity, id uuid.UUID) (*domain.Profile, error) {
	user, err := uc.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usecase: get user %s: %w", id, err)
	}
	if user == nil {
		return nil, domain.NotFound("user")
	}
	return domain.ProfileOf(user, caller.UserID == user.ID), nil
}

func (uc *userUseCase) UpdateProfile(ctx context.Context, id auth.Identity, in ProfileInput) (*domain.Profile, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	bio := strings.TrimSpace(in.Bio)
	avatar := strings.TrimSpace(in.AvatarURL)

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(bio) > maxBioLen {
		return nil, domain.InvalidInput("bio must be at most %d characters", maxBioLen)
	}
	if err := validateAvatarURL(avatar); err != nil {
		return nil, err
	}

	user, err := uc.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("usecase: get user %s: %w", id.UserID, err)
	}
	if user == nil {
		return nil, domain.NotFound("user")
	}

	if email != domain.NormalizeEmail(user.Email) {
		other, err := uc.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("usecase: lookup email: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, domain.ErrEmailTaken
		}
	}

	user.Name = name
	user.Email = email
	user.Bio = bio
	user.AvatarURL = avatar
	user.UpdatedAt = time.Now().UTC()

	if err := uc.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("usecase: update profile: %w", err)
	}

	uc.activity.record(ctx, user.ID, domain.ActionProfileUpdated, nil, "")
	return domain.ProfileOf(user, true), nil
}

func (uc *userUseCase) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	if current == "" {
		return domain.InvalidInput("currentPassword is required")
	}
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}

	user, err := uc.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("usecase: get user %s: %w", id.UserID, err)
	}
	if user == nil {
		return domain.NotFound("user")
	}
	if !uc.hasher.Verify(current, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hash, err := uc.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := uc.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("usecase: update password: %w", err)
	}

	uc.logger.Info("password changed", "user_id", user.ID)
	uc.activity.record(ctx, user.ID, domain.ActionPasswordChanged, nil, "")
	return nil
}

// DeleteAccount удаляет пользователя. Его токены после этого отклоняются
// проверкой существования в Authenticate.
func (uc *userUseCase) DeleteAccount(ctx context.Context, id auth.Identity) error {
	if err := uc.users.DeleteUser(ctx, id.UserID); err != nil {
		return fmt.Errorf("usecase: delete user %s: %w", id.UserID, err)
	}
	uc.logger.Info("account deleted", "user_id", id.UserID)
	return nil
}
