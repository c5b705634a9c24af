package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/cebot/database/models"
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/reconcile"
	"github.com/ce-community/cebot/internal/domain/rolls"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type staticReports struct {
	report *reconcile.Report
}

func (s staticReports) LastReport() *reconcile.Report { return s.report }

type fakeHistory struct {
	limit int
	err   error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.PassRecord, error) {
	f.limit = limit
	return []models.PassRecord{{ID: "p2"}, {ID: "p1"}}, f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *Error          `json:"error"`
}

func newServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	g := &catalog.Game{ID: "g1", Name: "Celeste", Category: catalog.CategoryPlatformer, Objectives: []catalog.Objective{
		{ID: "o1", GameID: "g1", Type: catalog.ObjectivePrimary, PointValue: 60},
		{ID: "o2", GameID: "g1", Type: catalog.ObjectiveSecondary, PointValue: 20},
	}}
	require.NoError(t, store.PutGame(ctx, g))

	u := catalog.NewUser("u1")
	u.DisplayName = "Alice"
	u.OwnedGames["g1"] = catalog.UserGame{GameID: "g1", Objectives: []catalog.UserObjective{
		{ObjectiveID: "o1", GameID: "g1", Type: catalog.ObjectivePrimary, UserPoints: 60},
	}}
	won := now.Add(-2 * 24 * time.Hour)
	u.Rolls = []catalog.Roll{{
		EventName:     rolls.NeverLucky,
		UserID:        "u1",
		Games:         []string{"g1"},
		InitTime:      now.Add(-10 * 24 * time.Hour),
		CompletedTime: &won,
		Status:        catalog.RollWon,
	}}
	require.NoError(t, store.PutUser(ctx, u))

	return &Server{
		Store:   store,
		Reports: staticReports{},
		Version: "test",
		Now:     func() time.Time { return now },
	}, store
}

func get(t *testing.T, s *Server, path string) (int, envelope) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return resp.StatusCode, env
}

func TestServer_Health(t *testing.T) {
	s, _ := newServer(t)
	status, env := get(t, s, "/healthz")
	assert.Equal(t, 200, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, string(env.Data))

	s.Ping = func(context.Context) error { return errors.New("connection refused") }
	status, env = get(t, s, "/healthz")
	assert.Equal(t, 503, status)
	assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "connection refused", env.Error.Message)
}

func TestServer_LastPass(t *testing.T) {
	s, _ := newServer(t)
	status, env := get(t, s, "/api/passes/last")
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	report := &reconcile.Report{ID: "p1", GamesNew: 3}
	report.Errors = append(report.Errors, errors.New("malformed game record x"))
	s.Reports = staticReports{report: report}

	status, env = get(t, s, "/api/passes/last")
	assert.Equal(t, 200, status)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "p1", got["id"])
	assert.EqualValues(t, 3, got["games_new"])
	assert.Equal(t, []any{"malformed game record x"}, got["errors"])
}

func TestServer_Passes(t *testing.T) {
	s, _ := newServer(t)
	status, _ := get(t, s, "/api/passes")
	assert.Equal(t, 404, status)

	h := &fakeHistory{}
	s.History = h
	status, env := get(t, s, "/api/passes?limit=5")
	assert.Equal(t, 200, status)
	assert.Equal(t, 5, h.limit)
	var records []models.PassRecord
	require.NoError(t, json.Unmarshal(env.Data, &records))
	assert.Len(t, records, 2)

	status, _ = get(t, s, "/api/passes?limit=0")
	assert.Equal(t, 400, status)

	h.err = errors.New("db down")
	status, env = get(t, s, "/api/passes")
	assert.Equal(t, 500, status)
	assert.False(t, env.Success)
}

func TestServer_User(t *testing.T) {
	s, _ := newServer(t)
	status, env := get(t, s, "/api/users/u1")
	require.Equal(t, 200, status)

	var got userView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, 60, got.Points)
	require.Len(t, got.Rolls, 1)
	require.NotNil(t, got.Rolls[0].CooldownEnd)
	// Never Lucky has no cooldown.
	assert.Equal(t, now.Add(-10*24*time.Hour), got.Rolls[0].CooldownEnd.UTC())
	assert.False(t, got.Rolls[0].OnCooldown)

	status, _ = get(t, s, "/api/users/nobody")
	assert.Equal(t, 404, status)
}

func TestServer_Game(t *testing.T) {
	s, _ := newServer(t)
	status, env := get(t, s, "/api/games/g1")
	require.Equal(t, 200, status)

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Celeste", got["name"])
	assert.EqualValues(t, 3, got["tier"])
	assert.EqualValues(t, 80, got["total_points"])
	assert.EqualValues(t, 60, got["primary_points"])

	status, env = get(t, s, "/api/games/missing")
	assert.Equal(t, 404, status)
	assert.Equal(t, "game not found", env.Error.Message)
}
