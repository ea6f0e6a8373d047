package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// WatchlistHandler обрабатывает список просмотра и предпочтения.
// Все маршруты стоят за Authenticate и RequireOwner.
type WatchlistHandler struct {
	watchlistUC   usecase.WatchlistUseCase
	preferencesUC usecase.PreferencesUseCase
	logger        *slog.Logger
}

// NewWatchlistHandler создает новый экземпляр WatchlistHandler
func NewWatchlistHandler(watchlistUC usecase.WatchlistUseCase, preferencesUC usecase.PreferencesUseCase, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlistUC: watchlistUC, preferencesUC: preferencesUC, logger: logger}
}

type preferencesRequest struct {
	GenreIDs []int  `json:"genreIds"`
	Language string `json:"language"`
}

// List обрабатывает GET /users/{id}/watchlist?page=&limit=
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	page, err := h.watchlistUC.List(r.Context(), caller, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, page, h.logger)
}

// Add обрабатывает POST /users/{id}/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req usecase.AddInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	entry, err := h.watchlistUC.Add(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, entry, h.logger)
}

// Remove обрабатывает DELETE /users/{id}/watchlist/{mediaId}?kind=
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	mediaID, err := strconv.ParseInt(chi.URLParam(r, "mediaId"), 10, 64)
	if err != nil || mediaID <= 0 {
		writeError(w, r, invalidParam("media id"), h.logger)
		return
	}
	var kind *domain.MediaKind
	if k := r.URL.Query().Get("kind"); k != "" {
		mk := domain.MediaKind(k)
		kind = &mk
	}

	if err := h.watchlistUC.Remove(r.Context(), caller, mediaID, kind); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, message{Message: "removed from watchlist"}, h.logger)
}

// Stats обрабатывает GET /users/{id}/watchlist/stats
func (h *WatchlistHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	stats, err := h.watchlistUC.Stats(r.Context(), caller)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, stats, h.logger)
}

// GetPreferences обрабатывает GET /users/{id}/preferences
func (h *WatchlistHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	prefs, err := h.preferencesUC.Get(r.Context(), caller)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs, h.logger)
}

// SetPreferences обрабатывает PUT /users/{id}/preferences
func (h *WatchlistHandler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	prefs, err := h.preferencesUC.Set(r.Context(), caller, req.GenreIDs, req.Language)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs, h.logger)
}
