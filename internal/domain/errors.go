package domain

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку по тому, как её видит клиент API.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
)

// Базовые ошибки по видам. errors.Is(err, ErrConflict) срабатывает для любой
// ошибки соответствующего вида.
var (
	ErrInternal        = errors.New("internal error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
)

// Машиночитаемые коды, которые уходят клиенту в поле error.code.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnknownGenre       = "UNKNOWN_GENRE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeAlreadyInList      = "ALREADY_IN_LIST"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL"
)

// Error: доменная ошибка с видом и кодом для клиента.
// Msg безопасно показывать клиенту, Err остаётся только для логов.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет сравнивать доменную ошибку с базовой ошибкой вида
// и с другой *Error по коду.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindRateLimited:
		return ErrRateLimited
	default:
		return ErrInternal
	}
}

// Часто используемые ошибки. Сравниваются через errors.Is по коду.
var (
	ErrEmailTaken         = &Error{Kind: KindConflict, Code: CodeEmailTaken, Msg: "email already registered"}
	ErrAlreadyInList      = &Error{Kind: KindConflict, Code: CodeAlreadyInList, Msg: "media already in watchlist"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Code: CodeInvalidCredentials, Msg: "invalid credentials"}
	ErrMissingToken       = &Error{Kind: KindUnauthenticated, Code: CodeMissingToken, Msg: "authentication required"}
	ErrInvalidToken       = &Error{Kind: KindUnauthenticated, Code: CodeInvalidToken, Msg: "invalid or expired token"}
	ErrUserNotFound       = &Error{Kind: KindUnauthenticated, Code: CodeUserNotFound, Msg: "user not found"}
	ErrNotOwner           = &Error{Kind: KindForbidden, Code: CodeForbidden, Msg: "access to this resource is not allowed"}
	ErrTooManyRequests    = &Error{Kind: KindRateLimited, Code: CodeRateLimited, Msg: "too many requests"}
)

// InvalidInput создаёт ошибку валидации с сообщением для клиента.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// UnknownGenre сообщает о неизвестном идентификаторе жанра.
func UnknownGenre(id int) *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeUnknownGenre, Msg: fmt.Sprintf("unknown genre id %d", id)}
}

// NotFound сообщает об отсутствующем ресурсе.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Msg: what + " not found"}
}

// WithCause возвращает копию ошибки с причиной для логов.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// AsError достаёт *Error из цепочки. Для неизвестных ошибок возвращает
// внутреннюю ошибку с исходной причиной.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return &Error{Kind: KindInvalidInput, Code: CodeInvalidInput, Msg: "invalid input", Err: err}
	case errors.Is(err, ErrForbidden):
		return ErrNotOwner.WithCause(err)
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Code: CodeNotFound, Msg: "not found", Err: err}
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Msg: "internal server error", Err: err}
}
