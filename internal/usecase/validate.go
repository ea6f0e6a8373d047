package usecase

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/GoArmGo/CineRadar/internal/domain"
)

const (
	minPasswordLen = 6
	maxNameLen     = 100
	maxBioLen      = 500
	maxTitleLen    = 300
	maxEmailLen    = 254
)

func validateEmail(email string) error {
	if email == "" {
		return domain.InvalidInput("email is required")
	}
	if len(email) > maxEmailLen {
		return domain.InvalidInput("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return domain.InvalidInput("email is not valid")
	}
	return nil
}

func validatePassword(field, password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return domain.InvalidInput("%s must be at least %d characters", field, minPasswordLen)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return domain.InvalidInput("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return domain.InvalidInput("name must be at most %d characters", maxNameLen)
	}
	return nil
}

func validateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.InvalidInput("avatarUrl must be an http(s) URL")
	}
	return nil
}
