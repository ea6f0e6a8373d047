package handler

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoArmGo/CineRadar/internal/auth"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/metrics"
	"github.com/GoArmGo/CineRadar/internal/ratelimit"
	"github.com/GoArmGo/CineRadar/internal/security"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestLogger: middleware для логирования HTTP-запросов.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Оборачиваем ResponseWriter, чтобы знать статус
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// responseWriter нужен, чтобы перехватывать код ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// bearerToken достаёт токен из заголовка Authorization. Схема сравнивается
// без учёта регистра, любые другие схемы считаются отсутствием токена.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate проверяет bearer-токен и кладёт личность вызывающего в контекст.
// Причина отказа пишется в лог и метрики, клиент видит только код.
func Authenticate(authUC usecase.AuthUseCase, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authUC.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				de := domain.AsError(err)
				if de.Kind == domain.KindUnauthenticated {
					reason := de.Code
					if rr, ok := security.RejectReason(err); ok {
						reason = string(rr)
					}
					logger.Warn("request rejected by auth middleware",
						"path", r.URL.Path,
						"code", de.Code,
						"reason", reason,
						"request_id", middleware.GetReqID(r.Context()),
					)
					m.AuthRejected(reason)
				}
				writeError(w, r, err, logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireOwner пропускает запрос, только если {param} в пути совпадает
// с вызывающим. Должен стоять после Authenticate.
func RequireOwner(param string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				writeError(w, r, invalidParam("user id"), logger)
				return
			}
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				writeError(w, r, domain.ErrMissingToken, logger)
				return
			}
			if err := auth.Authorize(id, ownerID); err != nil {
				logger.Warn("ownership check denied",
					"user_id", id.UserID,
					"owner_id", ownerID,
					"path", r.URL.Path,
				)
				writeError(w, r, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter: то, что нужно middleware от лимитера.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit ограничивает частоту запросов по имени маршрута и IP клиента.
// Без лимитера middleware ничего не делает. Ошибка Redis пропускает запрос.
func RateLimit(limiter RateLimiter, name string, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), name+":"+clientIP(r))
			if err != nil {
				logger.Error("rate limiter unavailable, allowing request", "route", name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				m.RateLimited(name)
				logger.Warn("rate limit exceeded", "route", name, "client_ip", clientIP(r))
				writeError(w, r, domain.ErrTooManyRequests, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP возвращает адрес клиента из RemoteAddr. Заголовки прокси сюда
// попадают только через middleware.RealIP, если он включён. После него
// RemoteAddr может быть уже без порта.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
