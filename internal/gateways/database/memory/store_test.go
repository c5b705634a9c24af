package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

func TestStore_Games(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetGame(ctx, "g1")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	for _, id := range []string{"g2", "g1"} {
		require.NoError(t, s.PutGame(ctx, &catalog.Game{ID: id, Name: id, Category: catalog.CategoryArcade}))
	}

	ids, err := s.ListGameIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, ids)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g1", games[0].ID)

	require.NoError(t, s.DeleteGame(ctx, "g1"))
	assert.ErrorIs(t, s.DeleteGame(ctx, "g1"), catalog.ErrNotFound)
}

func TestStore_UsersAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := catalog.NewUser("u1")
	u.DisplayName = "Alice"
	require.NoError(t, s.PutUser(ctx, u))
	u.DisplayName = "changed after put"

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)

	got.OwnedGames["g1"] = catalog.UserGame{GameID: "g1"}
	again, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again.OwnedGames)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}
