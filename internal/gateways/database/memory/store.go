package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

// Store keeps snapshots in process memory. Records are cloned on the way in and out.
type Store struct {
	mu    sync.RWMutex
	games map[string]*catalog.Game
	users map[string]*catalog.User
}

var _ catalog.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		games: make(map[string]*catalog.Game),
		users: make(map[string]*catalog.User),
	}
}

func (s *Store) GetGame(_ context.Context, id string) (*catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *Store) PutGame(_ context.Context, game *catalog.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Store) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.games, id)
	return nil
}

func (s *Store) ListGameIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.games), nil
}

func (s *Store) ListGames(_ context.Context) ([]*catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*catalog.Game, 0, len(s.games))
	for _, id := range sortedKeys(s.games) {
		out = append(out, s.games[id].Clone())
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*catalog.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) PutUser(_ context.Context, user *catalog.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
