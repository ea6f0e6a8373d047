// Package auth хранит проверенную личность вызывающего в контексте запроса
// и проверяет владение ресурсами.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity: проверенная личность вызывающего. Появляется в контексте только
// после успешной проверки токена и существования пользователя, и это
// единственный источник ответа на вопрос "кто вызывает".
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "cineradar context value " + k.name
}

var identityContextKey = &contextKey{"identity"}

// WithIdentity возвращает контекст с прикреплённой личностью.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFrom достаёт личность из контекста.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}
