package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

const DefaultSize = 4096

// Store is a read-through game cache in front of another catalog.Store.
// Users are never cached; they are always read from the backing store.
type Store struct {
	catalog.Store
	games *lru.Cache
}

var _ catalog.Store = (*Store)(nil)

func New(backing catalog.Store, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	games, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Store{Store: backing, games: games}, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	if v, ok := s.games.Get(id); ok {
		return v.(*catalog.Game).Clone(), nil
	}
	game, err := s.Store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	s.games.Add(id, game.Clone())
	return game, nil
}

func (s *Store) PutGame(ctx context.Context, game *catalog.Game) error {
	if err := s.Store.PutGame(ctx, game); err != nil {
		s.games.Remove(game.ID)
		return err
	}
	s.games.Add(game.ID, game.Clone())
	return nil
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	s.games.Remove(id)
	return s.Store.DeleteGame(ctx, id)
}

// Purge drops every cached game.
func (s *Store) Purge() {
	s.games.Purge()
}

func (s *Store) Len() int {
	return s.games.Len()
}
