package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
)

const healthTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler обрабатывает служебные маршруты.
type SystemHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewSystemHandler создает новый экземпляр SystemHandler
func NewSystemHandler(store Pinger, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{store: store, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Healthz обрабатывает GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "storage unavailable", h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, healthResponse{Status: "ok"}, h.logger)
}

// Genres обрабатывает GET /genres
func (h *SystemHandler) Genres(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, domain.KnownGenres(), h.logger)
}
