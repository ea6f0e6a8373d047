package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/users/{id}", "418"))
	assert.Equal(t, float64(3), got)
}

func TestAuthRejected(t *testing.T) {
	m := New()
	m.AuthRejected("MISSING_TOKEN")
	m.AuthRejected("MISSING_TOKEN")
	m.AuthRejected("EXPIRED")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthRejectionsTotal.WithLabelValues("MISSING_TOKEN")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.AuthRejected("x") })
}

func TestHandler(t *testing.T) {
	m := New()
	m.RateLimited("/auth/login")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `cineradar_rate_limited_total{route="/auth/login"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
