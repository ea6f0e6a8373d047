// Package memory: хранилище в памяти процесса. Используется в тестах и
// при STORAGE_DRIVER=memory. Соблюдает те же ограничения уникальности, что и PostgreSQL.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
)

type watchKey struct {
	userID  uuid.UUID
	mediaID int64
	kind    domain.MediaKind
}

// Store реализует ports.Store поверх map под одним мьютексом.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]domain.User
	emails      map[string]uuid.UUID
	watchlist   map[watchKey]domain.WatchlistEntry
	preferences map[uuid.UUID]domain.Preferences
	activity    map[uuid.UUID]domain.Activity
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		users:       make(map[uuid.UUID]domain.User),
		emails:      make(map[string]uuid.UUID),
		watchlist:   make(map[watchKey]domain.WatchlistEntry),
		preferences: make(map[uuid.UUID]domain.Preferences),
		activity:    make(map[uuid.UUID]domain.Activity),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) CreateUser(ctx context.Context, user *domain.User, prefs *domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, ok := s.emails[email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = *user
	s.emails[email] = user.ID
	if prefs != nil {
		p := *prefs
		p.GenreIDs = slices.Clone(prefs.GenreIDs)
		s.preferences[user.ID] = p
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) UpdateProfile(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[user.ID]
	if !ok {
		return domain.NotFound("user")
	}
	newEmail := domain.NormalizeEmail(user.Email)
	oldEmail := domain.NormalizeEmail(cur.Email)
	if newEmail != oldEmail {
		if _, taken := s.emails[newEmail]; taken {
			return domain.ErrEmailTaken
		}
		delete(s.emails, oldEmail)
		s.emails[newEmail] = user.ID
	}
	cur.Name = user.Name
	cur.Email = user.Email
	cur.Bio = user.Bio
	cur.AvatarURL = user.AvatarURL
	cur.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = cur
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[id]
	if !ok {
		return domain.NotFound("user")
	}
	cur.PasswordHash = hash
	cur.UpdatedAt = time.Now().UTC()
	s.users[id] = cur
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil
	}
	delete(s.users, id)
	delete(s.emails, domain.NormalizeEmail(u.Email))
	delete(s.preferences, id)
	for k := range s.watchlist {
		if k.userID == id {
			delete(s.watchlist, k)
		}
	}
	for k, a := range s.activity {
		if a.UserID == id {
			delete(s.activity, k)
		}
	}
	return nil
}

func (s *Store) AddToWatchlist(ctx context.Context, entry *domain.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[entry.UserID]; !ok {
		return domain.NotFound("user")
	}
	k := watchKey{entry.UserID, entry.MediaID, entry.MediaKind}
	if _, ok := s.watchlist[k]; ok {
		return domain.ErrAlreadyInList
	}
	s.watchlist[k] = *entry
	return nil
}

func (s *Store) WatchlistEntryExists(ctx context.Context, userID uuid.UUID, mediaID int64, kind domain.MediaKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.watchlist[watchKey{userID, mediaID, kind}]
	return ok, nil
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, mediaID int64, kind *domain.MediaKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.watchlist {
		if k.userID != userID || k.mediaID != mediaID {
			continue
		}
		if kind != nil && k.kind != *kind {
			continue
		}
		delete(s.watchlist, k)
		n++
	}
	return n, nil
}

func (s *Store) ListWatchlist(ctx context.Context, userID uuid.UUID, page, perPage int) ([]domain.WatchlistEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []domain.WatchlistEntry
	for k, e := range s.watchlist {
		if k.userID == userID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].MediaID > all[j].MediaID
	})

	total := len(all)
	offset := (page - 1) * perPage
	if offset >= total {
		return []domain.WatchlistEntry{}, total, nil
	}
	end := min(offset+perPage, total)
	return all[offset:end], total, nil
}

func (s *Store) WatchlistStats(ctx context.Context, userID uuid.UUID) (*domain.WatchlistStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &domain.WatchlistStats{}
	for k := range s.watchlist {
		if k.userID != userID {
			continue
		}
		switch k.kind {
		case domain.MediaMovie:
			st.Movies++
		case domain.MediaSeries:
			st.Series++
		}
		st.Total++
	}
	return st, nil
}

func (s *Store) GetPreferences(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[userID]
	if !ok {
		return nil, nil
	}
	p.GenreIDs = slices.Clone(p.GenreIDs)
	return &p, nil
}

func (s *Store) UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[prefs.UserID]; !ok {
		return domain.NotFound("user")
	}
	p := *prefs
	p.GenreIDs = slices.Clone(prefs.GenreIDs)
	s.preferences[prefs.UserID] = p
	return nil
}

func (s *Store) SaveActivity(ctx context.Context, activity *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[activity.UserID]; !ok {
		return domain.NotFound("user")
	}
	if _, ok := s.activity[activity.ID]; ok {
		return nil
	}
	s.activity[activity.ID] = *activity
	return nil
}

func (s *Store) ListActivity(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Activity{}
	for _, a := range s.activity {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PruneActivity(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.activity {
		if a.CreatedAt.Before(before) {
			delete(s.activity, id)
			n++
		}
	}
	return n, nil
}
