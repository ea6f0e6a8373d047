// Package security содержит хеширование паролей и выпуск/проверку токенов доступа.
package security

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher хеширует пароли через bcrypt. Соль генерируется на каждый
// вызов и хранится внутри хеша.
//
// bcrypt учитывает только первые 72 байта, поэтому пароль сначала сводится
// к base64(SHA-256) длиной 44 байта. Так пароль любой длины проверяется целиком.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher создаёт хешер с заданной стоимостью bcrypt.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword(prehash("cineradar-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("build dummy password hash: %w", err)
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Hash возвращает bcrypt-хеш пароля.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify сравнивает пароль с хешем. Повреждённый или чужой хеш даёт false, не ошибку.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(plaintext)) == nil
}

// VerifyDummy тратит столько же времени, сколько настоящая проверка.
// Используется при входе с неизвестным email.
func (h *PasswordHasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, prehash(plaintext))
}
