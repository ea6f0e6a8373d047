package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/core/ports"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"golang.org/x/text/language"
)

const maxGenres = 64

// preferencesUseCase implements PreferencesUseCase
type preferencesUseCase struct {
	storage  ports.PreferencesStorage
	activity activityRecorder
	logger   *slog.Logger
}

// NewPreferencesUseCase создает новый экземпляр PreferencesUseCase
func NewPreferencesUseCase(storage ports.PreferencesStorage, publisher ports.ActivityPublisher, logger *slog.Logger) PreferencesUseCase {
	return &preferencesUseCase{
		storage:  storage,
		activity: activityRecorder{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

func (uc *preferencesUseCase) Get(ctx context.Context, id auth.Identity) (*domain.Preferences, error) {
	prefs, err := uc.storage.GetPreferences(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("usecase: get preferences: %w", err)
	}
	if prefs == nil {
		return domain.DefaultPreferences(id.UserID), nil
	}
	if prefs.GenreIDs == nil {
		prefs.GenreIDs = []int{}
	}
	return prefs, nil
}

// Set проверяет жанры по известному списку, приводит язык к каноническому
// тегу BCP 47 и сохраняет предпочтения целиком.
func (uc *preferencesUseCase) Set(ctx context.Context, id auth.Identity, genreIDs []int, lang string) (*domain.Preferences, error) {
	ids := slices.Clone(genreIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if ids == nil {
		ids = []int{}
	}
	if len(ids) > maxGenres {
		return nil, domain.InvalidInput("at most %d genres are allowed", maxGenres)
	}
	for _, g := range ids {
		if !domain.IsKnownGenre(g) {
			return nil, domain.UnknownGenre(g)
		}
	}

	lang = strings.TrimSpace(lang)
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, domain.InvalidInput("language %q is not a valid language tag", lang)
		}
		lang = tag.String()
	}

	prefs := &domain.Preferences{
		UserID:    id.UserID,
		GenreIDs:  ids,
		Language:  lang,
		UpdatedAt: time.Now().UTC(),
	}
	if err := uc.storage.UpsertPreferences(ctx, prefs); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("usecase: save preferences: %w", err)
	}

	uc.activity.record(ctx, id.UserID, domain.ActionPreferencesUpdated, nil, "")
	return prefs, nil
}
