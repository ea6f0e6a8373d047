package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoArmGo/CineRadar/internal/database/memory"
	"github.com/GoArmGo/CineRadar/internal/logger"
	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
	"github.com/GoArmGo/CineRadar/internal/metrics"
	"github.com/GoArmGo/CineRadar/internal/ratelimit"
	"github.com/GoArmGo/CineRadar/internal/security"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// inlinePublisher сразу сохраняет событие, как это сделал бы воркер.
type inlinePublisher struct {
	activity usecase.ActivityUseCase
}

func (p *inlinePublisher) PublishActivity(ctx context.Context, payload payloads.ActivityPayload) error {
	return p.activity.Record(ctx, payload)
}

type testAPI struct {
	handler http.Handler
	store   *memory.Store
	tokens  *security.TokenCodec
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T, limiter RateLimiter, opts ...func(*Deps)) *testAPI {
	t.Helper()
	hasher, err := security.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := security.NewTokenCodec(testSecret, "cineradar-test", time.Hour)
	require.NoError(t, err)

	log := logger.Discard()
	store := memory.NewStore()
	activityUC := usecase.NewActivityUseCase(store, log)
	pub := &inlinePublisher{activity: activityUC}
	m := metrics.New()

	deps := Deps{
		Auth:           usecase.NewAuthUseCase(store, hasher, tokens, pub, log),
		Users:          usecase.NewUserUseCase(store, hasher, pub, log),
		Watchlist:      usecase.NewWatchlistUseCase(store, pub, log),
		Preferences:    usecase.NewPreferencesUseCase(store, pub, log),
		Activity:       activityUC,
		Store:          store,
		Limiter:        limiter,
		Metrics:        m,
		RequestTimeout: 5 * time.Second,
		Logger:         log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h := NewRouter(deps)
	return &testAPI{handler: h, store: store, tokens: tokens, metrics: m}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func (a *testAPI) register(t *testing.T, email, name string) sessionResponse {
	t.Helper()
	rec, resp := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "secret1", "name": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s sessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	return s
}

func TestScenarioRegisterWatchlistLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	s := api.register(t, "a@x.com", "A")
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "a@x.com", s.Email)
	userPath := "/users/" + s.ID.String()

	rec, resp := api.do(t, http.MethodGet, userPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MISSING_TOKEN", resp.Error.Code)
	assert.False(t, resp.Success)

	rec, resp = api.do(t, http.MethodGet, userPath, s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "A", profile["name"])
	assert.NotContains(t, rec.Body.String(), "password")

	entry := map[string]any{"mediaId": 42, "mediaKind": "movie", "title": "X"}
	rec, _ = api.do(t, http.MethodPost, userPath+"/watchlist", s.Token, entry)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = api.do(t, http.MethodPost, userPath+"/watchlist", s.Token, entry)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_IN_LIST", resp.Error.Code)

	rec, _ = api.do(t, http.MethodDelete, userPath+"/watchlist/42", s.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, resp = api.do(t, http.MethodDelete, userPath+"/watchlist/42", s.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = api.do(t, http.MethodGet, userPath+"/watchlist", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 20, page.Limit)

	rec, resp = api.do(t, http.MethodGet, userPath+"/activity", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.Len(t, feed.Items, 3)
	assert.Equal(t, "watchlist.removed", feed.Items[0].Action)
	assert.Equal(t, "user.registered", feed.Items[2].Action)
}

func TestDuplicateRegistration(t *testing.T) {
	api := newTestAPI(t, nil)
	api.register(t, "dup@x.com", "A")

	rec, resp := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": " DUP@x.com ", "password": "secret1", "name": "B",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMAIL_TAKEN", resp.Error.Code)
}

func TestOwnershipEnforced(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.register(t, "alice@x.com", "Alice")
	bob := api.register(t, "bob@x.com", "Bob")

	rec, _ := api.do(t, http.MethodPost, "/users/"+bob.ID.String()+"/watchlist", bob.Token,
		map[string]any{"mediaId": 7, "mediaKind": "series", "title": "Secret"})
	require.Equal(t, http.StatusCreated, rec.Code)

	paths := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/watchlist", nil},
		{http.MethodPost, "/watchlist", map[string]any{"mediaId": 1, "mediaKind": "movie", "title": "T"}},
		{http.MethodDelete, "/watchlist/7", nil},
		{http.MethodGet, "/preferences", nil},
		{http.MethodPut, "/preferences", map[string]any{"genreIds": []int{28}}},
		{http.MethodPut, "/profile", map[string]any{"name": "Evil", "email": "evil@x.com"}},
		{http.MethodGet, "/activity", nil},
		{http.MethodDelete, "", nil},
	}
	for _, p := range paths {
		t.Run(p.method+p.path, func(t *testing.T) {
			rec, resp := api.do(t, p.method, "/users/"+bob.ID.String()+p.path, alice.Token, p.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "FORBIDDEN", resp.Error.Code)
			assert.NotContains(t, rec.Body.String(), "Secret")
		})
	}

	rec, resp := api.do(t, http.MethodGet, "/users/"+bob.ID.String()+"/watchlist", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "Secret")
}

func TestPublicProfileHidesEmail(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.register(t, "alice@x.com", "Alice")
	bob := api.register(t, "bob@x.com", "Bob")

	rec, resp := api.do(t, http.MethodGet, "/users/"+bob.ID.String(), alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, string(resp.Data), "bob@x.com")

	rec, _ = api.do(t, http.MethodGet, "/users/not-a-uuid", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/users/00000000-0000-0000-0000-000000000001", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginDoesNotLeakExistence(t *testing.T) {
	api := newTestAPI(t, nil)
	api.register(t, "real@x.com", "Real")

	recUnknown, _ := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nonexistent@x.com", "password": "anything",
	})
	recWrong, _ := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "real@x.com", "password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, recUnknown.Code, recWrong.Code)
	assert.Equal(t, recUnknown.Body.String(), recWrong.Body.String())

	rec, resp := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "REAL@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "token")
}

func TestAuthMiddlewareRejections(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.register(t, "a@x.com", "A")
	path := "/users/" + s.ID.String() + "/watchlist"

	expired, _, err := api.tokens.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}).Issue(s.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "no header", header: "", code: "MISSING_TOKEN"},
		{name: "basic scheme", header: "Basic abc", code: "MISSING_TOKEN"},
		{name: "empty bearer", header: "Bearer ", code: "MISSING_TOKEN"},
		{name: "garbage", header: "Bearer not.a.token", code: "INVALID_TOKEN"},
		{name: "expired", header: "Bearer " + expired, code: "INVALID_TOKEN"},
		{name: "tampered", header: "Bearer " + s.Token + "x", code: "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			api.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var resp apiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "bearer "+s.Token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "scheme is case-insensitive")

	assert.Equal(t, float64(1), testutil.ToFloat64(api.metrics.AuthRejectionsTotal.WithLabelValues(string(security.ReasonExpired))))
}

func TestDeletedUserTokenRejected(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.register(t, "gone@x.com", "Gone")
	userPath := "/users/" + s.ID.String()

	rec, _ := api.do(t, http.MethodDelete, userPath, s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := api.do(t, http.MethodGet, userPath+"/watchlist", s.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "USER_NOT_FOUND", resp.Error.Code)
}

func TestPreferencesRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.register(t, "p@x.com", "P")
	path := "/users/" + s.ID.String() + "/preferences"

	rec, resp := api.do(t, http.MethodGet, path, s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, resp.Data, "genreIds")))

	rec, resp = api.do(t, http.MethodPut, path, s.Token, map[string]any{"genreIds": []int{878, 28, 28}, "language": "en-us"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[28,878]`, string(mustField(t, resp.Data, "genreIds")))
	assert.JSONEq(t, `"en-US"`, string(mustField(t, resp.Data, "language")))

	rec, resp = api.do(t, http.MethodPut, path, s.Token, map[string]any{"genreIds": []int{999999}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_GENRE", resp.Error.Code)
}

func mustField(t *testing.T, data json.RawMessage, name string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m[name]
	require.True(t, ok, "field %s missing", name)
	return v
}

func TestStrictJSONDecoding(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"email":"a@x.com","password":"secret1","name":"A","admin":true}`},
		{name: "malformed", body: `{"email":`},
		{name: "empty", body: ``},
		{name: "trailing data", body: `{"email":"a@x.com","password":"secret1","name":"A"} {}`},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := api.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
		})
	}
}

func TestRateLimitLogin(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.New(client, 2, time.Minute, logger.Discard())
	require.NoError(t, err)

	api := newTestAPI(t, limiter)
	creds := map[string]string{"email": "x@x.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		rec, _ := api.do(t, http.MethodPost, "/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, resp := api.do(t, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, float64(1), testutil.ToFloat64(api.metrics.RateLimitedTotal.WithLabelValues("login")))

	// регистрация считается отдельно
	rec, _ = api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "new@x.com", "password": "secret1", "name": "N",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func newMiniredisLimiter(t *testing.T, limit int) *ratelimit.Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.New(client, limit, time.Minute, logger.Discard())
	require.NoError(t, err)
	return limiter
}

func loginFrom(t *testing.T, api *testAPI, remoteAddr, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"x@x.com","password":"whatever"}`))
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.Header.Set("X-Real-IP", forwardedFor)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	api := newTestAPI(t, newMiniredisLimiter(t, 2))

	var codes []int
	for i := 0; i < 6; i++ {
		codes = append(codes, loginFrom(t, api, "203.0.113.7:40000", fmt.Sprintf("198.51.100.%d", i+1)))
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)

	// другой адрес соединения считается отдельно
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, api, "203.0.113.8:40000", ""))
}

func TestRateLimitTrustsProxyHeadersWhenEnabled(t *testing.T) {
	api := newTestAPI(t, newMiniredisLimiter(t, 1), func(d *Deps) { d.TrustProxyHeaders = true })

	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, api, "10.0.0.1:40000", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, api, "10.0.0.1:40000", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, api, "10.0.0.1:40000", "198.51.100.2"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	api := newTestAPI(t, failingLimiter{})
	rec, _ := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "open@x.com", "password": "secret1", "name": "O",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSystemRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, resp := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))

	rec, resp = api.do(t, http.MethodGet, "/genres", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "Science Fiction")

	rec, resp = api.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)

	rec, _ = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cineradar_http_requests_total")
}

type downStore struct{}

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthzStoreDown(t *testing.T) {
	h := NewSystemHandler(downStore{}, logger.Discard())
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	writeError(rec, req, errors.New("pq: password authentication failed for user cineradar"), logger.Discard())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL","message":"internal server error"}}`, rec.Body.String())
}
