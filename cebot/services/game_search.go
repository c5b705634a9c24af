package services

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/internal/domain/catalog"
)

// gameSearchItems implements fuzzy.Source over normalized game names.
type gameSearchItems []gameSearchItem

type gameSearchItem struct {
	Game *catalog.Game
	Name string
}

func (items gameSearchItems) Len() int {
	return len(items)
}

func (items gameSearchItems) String(i int) string {
	return items[i].Name
}

// GameSearchService finds stored games by approximate name.
type GameSearchService struct {
	games catalog.GameStore
}

func NewGameSearchService(games catalog.GameStore) *GameSearchService {
	return &GameSearchService{games: games}
}

// Search returns up to limit games ranked by match quality. An exact id match wins outright.
func (s *GameSearchService) Search(ctx context.Context, query string, limit int) ([]*catalog.Game, error) {
	id := strings.TrimSpace(query)
	query = normalizeName(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = config.MaxSearchResults
	}

	if g, err := s.games.GetGame(ctx, id); err == nil {
		return []*catalog.Game{g}, nil
	}

	games, err := s.games.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	items := make(gameSearchItems, len(games))
	for i, g := range games {
		items[i] = gameSearchItem{Game: g, Name: normalizeName(g.Name)}
	}

	matches := fuzzy.FindFrom(query, items)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]*catalog.Game, len(matches))
	for i, m := range matches {
		results[i] = items[m.Index].Game
	}
	return results, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
