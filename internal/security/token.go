package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes: минимальная длина секрета подписи HS256.
const MinSecretBytes = 32

// Reason: внутренняя причина отказа в токене. Только для логов и метрик,
// клиенту всегда уходит одинаковый ответ.
type Reason string

const (
	ReasonMalformed    Reason = "MALFORMED"
	ReasonBadSignature Reason = "BAD_SIGNATURE"
	ReasonExpired      Reason = "EXPIRED"
)

// TokenError: отказ в токене с причиной.
type TokenError struct {
	Reason Reason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token rejected: " + string(e.Reason)
	}
	return fmt.Sprintf("token rejected: %s: %v", e.Reason, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// RejectReason возвращает причину отказа, если err: *TokenError.
func RejectReason(err error) (Reason, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason, true
	}
	return "", false
}

// Claims: проверенное содержимое токена.
type Claims struct {
	Subject   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec выпускает и проверяет подписанные HS256 JWT.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec создаёт кодек. Секрет загружается один раз при старте.
func NewTokenCodec(secret []byte, issuer string, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretBytes)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenCodec{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock подменяет источник времени (для тестов).
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL возвращает срок жизни токенов по умолчанию.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue выпускает токен для subject со сроком жизни по умолчанию.
func (c *TokenCodec) Issue(subject uuid.UUID) (string, time.Time, error) {
	return c.IssueWithTTL(subject, c.ttl)
}

// IssueWithTTL выпускает токен с явным сроком жизни.
func (c *TokenCodec) IssueWithTTL(subject uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify проверяет сначала подпись, потом срок действия.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, &TokenError{Reason: classify(err), Err: err}
	}

	sub, err := uuid.Parse(rc.Subject)
	if err != nil {
		return nil, &TokenError{Reason: ReasonMalformed, Err: fmt.Errorf("bad subject: %w", err)}
	}

	claims := &Claims{Subject: sub, ExpiresAt: rc.ExpiresAt.Time}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	return claims, nil
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	default:
		return ReasonMalformed
	}
}
