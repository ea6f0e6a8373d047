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
)

// watchlistUseCase implements WatchlistUseCase.
// Все операции работают только со списком вызывающего (id.UserID).
type watchlistUseCase struct {
	storage  ports.WatchlistStorage
	activity activityRecorder
	logger   *slog.Logger
}

// NewWatchlistUseCase создает новый экземпляр WatchlistUseCase
func NewWatchlistUseCase(storage ports.WatchlistStorage, publisher ports.ActivityPublisher, logger *slog.Logger) WatchlistUseCase {
	return &watchlistUseCase{
		storage:  storage,
		activity: activityRecorder{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

func (uc *watchlistUseCase) Add(ctx context.Context, id auth.Identity, in AddInput) (*domain.WatchlistEntry, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case in.MediaID <= 0:
		return nil, domain.InvalidInput("mediaId must be a positive integer")
	case !in.MediaKind.Valid():
		return nil, domain.InvalidInput("mediaKind must be %q or %q", domain.MediaMovie, domain.MediaSeries)
	case title == "":
		return nil, domain.InvalidInput("title is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return nil, domain.InvalidInput("title must be at most %d characters", maxTitleLen)
	}

	exists, err := uc.storage.WatchlistEntryExists(ctx, id.UserID, in.MediaID, in.MediaKind)
	if err != nil {
		return nil, fmt.Errorf("usecase: check watchlist: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyInList
	}

	entry := &domain.WatchlistEntry{
		UserID:     id.UserID,
		MediaID:    in.MediaID,
		MediaKind:  in.MediaKind,
		Title:      title,
		PosterPath: strings.TrimSpace(in.Poster),
		CreatedAt:  time.Now().UTC(),
	}
	// Уникальный ключ хранилища ловит параллельное добавление после проверки.
	if err := uc.storage.AddToWatchlist(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyInList) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("usecase: add to watchlist: %w", err)
	}

	mediaID := entry.MediaID
	uc.activity.record(ctx, id.UserID, domain.ActionWatchlistAdded, &mediaID, entry.MediaKind)
	return entry, nil
}

func (uc *watchlistUseCase) Remove(ctx context.Context, id auth.Identity, mediaID int64, kind *domain.MediaKind) error {
	if mediaID <= 0 {
		return domain.InvalidInput("mediaId must be a positive integer")
	}
	if kind != nil && !kind.Valid() {
		return domain.InvalidInput("kind must be %q or %q", domain.MediaMovie, domain.MediaSeries)
	}

	n, err := uc.storage.RemoveFromWatchlist(ctx, id.UserID, mediaID, kind)
	if err != nil {
		return fmt.Errorf("usecase: remove from watchlist: %w", err)
	}
	if n == 0 {
		uc.logger.Debug("watchlist entry already absent", "user_id", id.UserID, "media_id", mediaID)
		return nil
	}

	var k domain.MediaKind
	if kind != nil {
		k = *kind
	}
	uc.activity.record(ctx, id.UserID, domain.ActionWatchlistRemoved, &mediaID, k)
	return nil
}

func (uc *watchlistUseCase) List(ctx context.Context, id auth.Identity, page, limit int) (*domain.Page[domain.WatchlistEntry], error) {
	page, limit = domain.ClampPage(page, limit)

	items, total, err := uc.storage.ListWatchlist(ctx, id.UserID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("usecase: list watchlist: %w", err)
	}
	if items == nil {
		items = []domain.WatchlistEntry{}
	}
	return &domain.Page[domain.WatchlistEntry]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (uc *watchlistUseCase) Stats(ctx context.Context, id auth.Identity) (*domain.WatchlistStats, error) {
	st, err := uc.storage.WatchlistStats(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("usecase: watchlist stats: %w", err)
	}
	return st, nil
}
