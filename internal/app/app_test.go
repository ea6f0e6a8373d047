package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GoArmGo/CineRadar/internal/config"
	"github.com/GoArmGo/CineRadar/internal/database/memory"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/logger"
	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
	"github.com/GoArmGo/CineRadar/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer передаёт заранее заданные события обработчику.
type fakeConsumer struct {
	events []payloads.ActivityPayload

	mu      sync.Mutex
	results []error
	done    chan struct{}
}

func (c *fakeConsumer) StartConsumingActivity(ctx context.Context, handler func(context.Context, payloads.ActivityPayload) error) error {
	go func() {
		defer close(c.done)
		for _, e := range c.events {
			err := handler(ctx, e)
			c.mu.Lock()
			c.results = append(c.results, err)
			c.mu.Unlock()
		}
	}()
	return nil
}

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:        time.Second,
		ActivityRetention:     time.Hour,
		ActivityPruneSchedule: "@every 1h",
	}
}

func seedUser(t *testing.T, store *memory.Store) uuid.UUID {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Email: "w@x.com", Name: "W", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateUser(context.Background(), u, domain.DefaultPreferences(u.ID)))
	return u.ID
}

func TestWorkerRecordsActivity(t *testing.T) {
	store := memory.NewStore()
	userID := seedUser(t, store)
	log := logger.Discard()

	consumer := &fakeConsumer{
		done: make(chan struct{}),
		events: []payloads.ActivityPayload{
			{ID: uuid.New(), UserID: userID, Action: string(domain.ActionWatchlistAdded), OccurredAt: time.Now().UTC()},
			{ID: uuid.New(), UserID: uuid.New(), Action: string(domain.ActionRegistered), OccurredAt: time.Now().UTC()},
			{ID: uuid.New(), UserID: userID},
		},
	}
	activityUC := usecase.NewActivityUseCase(store, log)
	a := NewApp(testConfig(), log, Deps{Store: store, Consumer: consumer, Activity: activityUC})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.runWorker(ctx) }()

	select {
	case <-consumer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not process events")
	}
	cancel()
	require.NoError(t, <-errCh)

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	require.Len(t, consumer.results, 3)
	assert.NoError(t, consumer.results[0])
	assert.NoError(t, consumer.results[1], "events of deleted users are dropped")
	assert.True(t, errors.Is(consumer.results[2], domain.ErrInvalidInput))

	items, err := store.ListActivity(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ActionWatchlistAdded, items[0].Action)
}

func TestWorkerRequiresConsumer(t *testing.T) {
	a := NewApp(testConfig(), logger.Discard(), Deps{})
	assert.Error(t, a.runWorker(context.Background()))
}

func TestPruneActivity(t *testing.T) {
	store := memory.NewStore()
	userID := seedUser(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveActivity(ctx, &domain.Activity{
		ID: uuid.New(), UserID: userID, Action: domain.ActionRegistered, CreatedAt: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, store.SaveActivity(ctx, &domain.Activity{
		ID: uuid.New(), UserID: userID, Action: domain.ActionProfileUpdated, CreatedAt: time.Now(),
	}))

	log := logger.Discard()
	a := NewApp(testConfig(), log, Deps{Store: store, Activity: usecase.NewActivityUseCase(store, log)})
	a.pruneActivity(ctx)

	items, err := store.ListActivity(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ActionProfileUpdated, items[0].Action)
}

func TestRunUnknownMode(t *testing.T) {
	var order []string
	a := NewApp(testConfig(), logger.Discard(), Deps{
		Closers: []io.Closer{
			closeRecorder{name: "db", order: &order},
			closeRecorder{name: "rabbitmq", order: &order},
		},
	})
	err := a.Run(context.Background(), "batch")
	assert.Error(t, err)
	assert.Equal(t, []string{"rabbitmq", "db"}, order, "resources close in reverse order")
}

func TestShutdownJoinsErrors(t *testing.T) {
	var order []string
	a := NewApp(testConfig(), logger.Discard(), Deps{
		Closers: []io.Closer{
			closeRecorder{name: "a", order: &order, err: errors.New("a failed")},
			closeRecorder{name: "b", order: &order},
		},
	})
	err := a.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Equal(t, []string{"b", "a"}, order)
	assert.NoError(t, a.Shutdown(), "second shutdown is a no-op")
}

func TestNewRouterServesHealth(t *testing.T) {
	store := memory.NewStore()
	a := NewApp(testConfig(), logger.Discard(), Deps{Store: store})

	rec := httptest.NewRecorder()
	a.newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
