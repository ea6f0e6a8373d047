package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserHandler обрабатывает запросы к профилю и ленте активности.
type UserHandler struct {
	userUC     usecase.UserUseCase
	activityUC usecase.ActivityUseCase
	logger     *slog.Logger
}

// NewUserHandler создает новый экземпляр UserHandler
func NewUserHandler(userUC usecase.UserUseCase, activityUC usecase.ActivityUseCase, logger *slog.Logger) *UserHandler {
	return &UserHandler{userUC: userUC, activityUC: activityUC, logger: logger}
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type activityResponse struct {
	Items []domain.Activity `json:"items"`
}

// callerFrom возвращает личность, положенную Authenticate.
func callerFrom(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return auth.Identity{}, domain.ErrMissingToken
	}
	return id, nil
}

// queryInt читает целый параметр запроса. Отсутствующее или нечисловое
// значение даёт 0, дальше его поправит clamp.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

// GetUser обрабатывает GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, invalidParam("user id"), h.logger)
		return
	}

	profile, err := h.userUC.GetProfile(r.Context(), caller, userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, profile, h.logger)
}

// UpdateProfile обрабатывает PUT /users/{id}/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req usecase.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.userUC.UpdateProfile(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, profile, h.logger)
}

// ChangePassword обрабатывает PUT /users/{id}/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.userUC.ChangePassword(r.Context(), caller, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, message{Message: "password updated"}, h.logger)
}

// DeleteUser обрабатывает DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if err := h.userUC.DeleteAccount(r.Context(), caller); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, message{Message: "account deleted"}, h.logger)
}

// Activity обрабатывает GET /users/{id}/activity?limit=
func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	items, err := h.activityUC.Recent(r.Context(), caller, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []domain.Activity{}
	}
	respondWithJSON(w, http.StatusOK, activityResponse{Items: items}, h.logger)
}
