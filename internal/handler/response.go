package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/CineRadar/internal/domain"
)

const maxBodyBytes = 1 << 20

// envelope: единый формат всех ответов API.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type message struct {
	Message string `json:"message"`
}

// respondWithJSON: отправляет успешный ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	writeEnvelope(w, code, envelope{Success: true, Data: payload}, logger)
}

// respondWithError: отправляет ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, errCode, msg string, logger *slog.Logger) {
	writeEnvelope(w, code, envelope{Error: &errorBody{Code: errCode, Message: msg}}, logger)
}

func writeEnvelope(w http.ResponseWriter, code int, body envelope, logger *slog.Logger) {
	response, err := json.Marshal(body)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL","message":"internal server error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// statusFor переводит вид доменной ошибки в HTTP-статус.
func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError: единственное место, где ошибка превращается в HTTP-ответ.
// Внутренние ошибки логируются подробно, клиент получает только INTERNAL.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	de := domain.AsError(err)
	status := statusFor(de.Kind)

	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"code", de.Code,
		)
	}
	respondWithError(w, status, de.Code, de.Msg, logger)
}

// decodeJSON строго разбирает тело запроса: неизвестные поля и лишние данные запрещены.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.InvalidInput("request body must not exceed %d bytes", maxBodyBytes)
		case errors.Is(err, io.EOF):
			return domain.InvalidInput("request body is empty")
		default:
			return domain.InvalidInput("malformed JSON body").WithCause(err)
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

func invalidParam(name string) error {
	return domain.InvalidInput("invalid %s", name)
}
