package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind: тип медиа в списке просмотра.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaSeries MediaKind = "series"
)

// Valid сообщает, известен ли тип медиа.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaSeries
}

// WatchlistEntry: запись в списке просмотра пользователя,
// соответствует таблице watchlist в бд.
// Пара (UserID, MediaID, MediaKind) уникальна.
type WatchlistEntry struct {
	UserID     uuid.UUID `json:"-" db:"user_id"`
	MediaID    int64     `json:"mediaId" db:"media_id"`
	MediaKind  MediaKind `json:"mediaKind" db:"media_kind"`
	Title      string    `json:"title" db:"title"`
	PosterPath string    `json:"poster" db:"poster_path"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// WatchlistStats: количество записей по типам медиа.
type WatchlistStats struct {
	Movies int `json:"movies" db:"movies"`
	Series int `json:"series" db:"series"`
	Total  int `json:"total" db:"total"`
}

// Page: страница результатов с общим количеством записей.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxPage         = 1_000_000
)

// ClampPage приводит параметры пагинации к допустимым границам.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
