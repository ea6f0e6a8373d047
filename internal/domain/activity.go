package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction: тип события в ленте активности пользователя.
type ActivityAction string

const (
	ActionRegistered         ActivityAction = "user.registered"
	ActionProfileUpdated     ActivityAction = "user.profile_updated"
	ActionPasswordChanged    ActivityAction = "user.password_changed"
	ActionWatchlistAdded     ActivityAction = "watchlist.added"
	ActionWatchlistRemoved   ActivityAction = "watchlist.removed"
	ActionPreferencesUpdated ActivityAction = "preferences.updated"
)

// Activity: событие ленты активности, соответствует таблице activity в бд.
type Activity struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"-" db:"user_id"`
	Action    ActivityAction `json:"action" db:"action"`
	MediaID   *int64         `json:"mediaId,omitempty" db:"media_id"`
	MediaKind *MediaKind     `json:"mediaKind,omitempty" db:"media_kind"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}
