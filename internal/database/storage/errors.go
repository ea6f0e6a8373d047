package storage

import (
	"errors"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые переводятся в доменные ошибки.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Имена ограничений из миграций.
const (
	constraintUserEmail      = "users_email_key"
	constraintWatchlistMedia = "watchlist_user_media_key"
)

// translateError переводит нарушения ограничений в доменные ошибки.
// Остальные ошибки возвращаются как есть.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgUniqueViolation:
		switch pqErr.Constraint {
		case constraintUserEmail:
			return domain.ErrEmailTaken.WithCause(err)
		case constraintWatchlistMedia:
			return domain.ErrAlreadyInList.WithCause(err)
		}
	case pgForeignKeyViolation:
		return domain.NotFound("user").WithCause(err)
	}
	return err
}
