package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/google/uuid"
)

// AuthHandler обрабатывает регистрацию, вход и выход.
type AuthHandler struct {
	authUC usecase.AuthUseCase
	logger *slog.Logger
}

// NewAuthHandler создает новый экземпляр AuthHandler
func NewAuthHandler(authUC usecase.AuthUseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authUC: authUC, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionOf(s *usecase.Session) sessionResponse {
	return sessionResponse{
		ID:        s.User.ID,
		Name:      s.User.Name,
		Email:     s.User.Email,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	session, err := h.authUC.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, sessionOf(session), h.logger)
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	session, err := h.authUC.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, sessionOf(session), h.logger)
}

// Logout обрабатывает POST /auth/logout. Токены не хранятся на сервере,
// клиент просто забывает свой.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, message{Message: "logged out"}, h.logger)
}
