package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ts(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

// newGame builds a game with one Primary objective worth points.
func newGame(id string, category catalog.Category, points int, updated time.Time) *catalog.Game {
	return &catalog.Game{
		ID:       id,
		Name:     "Game " + id,
		Platform: catalog.PlatformSteam,
		Category: category,
		Objectives: []catalog.Objective{
			{ID: id + "-o1", Type: catalog.ObjectivePrimary, Name: "Beat it", PointValue: points, UpdatedAt: updated},
		},
		UpdatedAt: updated,
	}
}

func normalized(g *catalog.Game) *catalog.Game {
	g = g.Clone()
	g.Normalize()
	return g
}

// withPoints returns a fresh user payload holding the given points per game id.
func withPoints(id string, points map[string]int) *catalog.User {
	u := catalog.NewUser(id)
	u.DisplayName = "user " + id
	for gameID, p := range points {
		u.OwnedGames[gameID] = catalog.UserGame{
			GameID: gameID,
			Objectives: []catalog.UserObjective{
				{ObjectiveID: gameID + "-o1", GameID: gameID, Type: catalog.ObjectivePrimary, UserPoints: p},
			},
		}
	}
	return u
}

type staticProvider struct {
	mu    sync.Mutex
	games []*catalog.Game
	users []*catalog.User
}

func (p *staticProvider) set(games []*catalog.Game, users []*catalog.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.games, p.users = games, users
}

func (p *staticProvider) FetchGames(context.Context) (catalog.GameBatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*catalog.Game, len(p.games))
	for i, g := range p.games {
		out[i] = g.Clone()
	}
	return catalog.GameBatch{Games: out}, nil
}

func (p *staticProvider) FetchUsers(context.Context) (catalog.UserBatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*catalog.User, len(p.users))
	for i, u := range p.users {
		out[i] = u.Clone()
	}
	return catalog.UserBatch{Users: out}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	passes [][]events.Event
}

func (s *recordingSink) Deliver(_ context.Context, evs []events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes = append(s.passes, evs)
	return nil
}

func (s *recordingSink) last() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.passes) == 0 {
		return nil
	}
	return s.passes[len(s.passes)-1]
}

func ofKind(evs []events.Event, kind events.Kind) []events.Event {
	var out []events.Event
	for _, e := range evs {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	store    *memory.Store
	provider *staticProvider
	sink     *recordingSink
	engine   *Engine
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		provider: &staticProvider{},
		sink:     &recordingSink{},
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return t0.Add(24 * time.Hour) }
	}
	h.engine = NewEngine(h.store, h.provider, h.sink, opts)
	return h
}

// run executes one pass and returns the events it delivered.
func (h *harness) run(t *testing.T) (*Report, []events.Event) {
	t.Helper()
	before := len(h.sink.passes)
	report, err := h.engine.RunPass(context.Background())
	require.NoError(t, err)
	if len(h.sink.passes) == before {
		return report, nil
	}
	return report, h.sink.last()
}
