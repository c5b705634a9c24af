package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
)

func seedGames(t *testing.T, names map[string]string) *memory.Store {
	t.Helper()
	s := memory.New()
	for id, name := range names {
		require.NoError(t, s.PutGame(context.Background(), &catalog.Game{ID: id, Name: name, Category: catalog.CategoryAction}))
	}
	return s
}

func TestGameSearchService_Search(t *testing.T) {
	store := seedGames(t, map[string]string{
		"g1": "Hollow Knight",
		"g2": "Hades",
		"g3": "Celeste",
		"g4": "Hollow Knight: Silksong",
	})
	svc := NewGameSearchService(store)
	ctx := context.Background()

	got, err := svc.Search(ctx, "  hollow   KNIGHT ", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g1", got[0].ID)

	got, err = svc.Search(ctx, "g3", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Celeste", got[0].Name)

	got, err = svc.Search(ctx, "hk", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
