package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/metrics"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps: всё, что нужно для сборки HTTP API.
type Deps struct {
	Auth        usecase.AuthUseCase
	Users       usecase.UserUseCase
	Watchlist   usecase.WatchlistUseCase
	Preferences usecase.PreferencesUseCase
	Activity    usecase.ActivityUseCase
	Store       Pinger
	// Limiter может быть nil, тогда ограничение частоты выключено.
	Limiter        RateLimiter
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	// TrustProxyHeaders включает middleware.RealIP. Без прокси заголовки
	// подделываются клиентом, и лимитер считал бы их вместо адреса соединения.
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	authHandler := NewAuthHandler(d.Auth, logger)
	userHandler := NewUserHandler(d.Users, d.Activity, logger)
	watchlistHandler := NewWatchlistHandler(d.Watchlist, d.Preferences, logger)
	systemHandler := NewSystemHandler(d.Store, logger)

	authenticate := Authenticate(d.Auth, d.Metrics, logger)
	owner := RequireOwner("id", logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, domain.NotFound("route"), logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", logger)
	})

	r.Get("/healthz", systemHandler.Healthz)
	r.Get("/genres", systemHandler.Genres)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(RateLimit(d.Limiter, "register", d.Metrics, logger)).Post("/register", authHandler.Register)
		r.With(RateLimit(d.Limiter, "login", d.Metrics, logger)).Post("/login", authHandler.Login)
		r.With(authenticate).Post("/logout", authHandler.Logout)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", userHandler.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(owner)
			r.Delete("/", userHandler.DeleteUser)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Put("/password", userHandler.ChangePassword)
			r.Get("/activity", userHandler.Activity)

			r.Get("/watchlist", watchlistHandler.List)
			r.Post("/watchlist", watchlistHandler.Add)
			r.Get("/watchlist/stats", watchlistHandler.Stats)
			r.Delete("/watchlist/{mediaId}", watchlistHandler.Remove)

			r.Get("/preferences", watchlistHandler.GetPreferences)
			r.Put("/preferences", watchlistHandler.SetPreferences)
		})
	})

	return r
}
