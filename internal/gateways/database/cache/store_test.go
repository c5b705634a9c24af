package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/catalog/mock"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
)

func game(id string) *catalog.Game {
	return &catalog.Game{
		ID:          id,
		Name:        "Game " + id,
		Category:    catalog.CategoryAction,
		LastUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Objectives: []catalog.Objective{
			{ID: id + "-o1", GameID: id, Name: "Beat it", Type: catalog.ObjectivePrimary, PointValue: 10},
		},
	}
}

func TestStore_ReadThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	backing := mock.NewMockStore(ctrl)
	backing.EXPECT().GetGame(gomock.Any(), "g1").Return(game("g1"), nil).Times(1)

	s, err := New(backing, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		g, err := s.GetGame(context.Background(), "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", g.ID)
	}
	assert.Equal(t, 1, s.Len())
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, err := New(memory.New(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.PutGame(ctx, game("g1")))
	g, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	g.Name = "mutated"

	again, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Game g1", again.Name)
}

func TestStore_DeleteEvicts(t *testing.T) {
	s, err := New(memory.New(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.PutGame(ctx, game("g1")))
	require.NoError(t, s.DeleteGame(ctx, "g1"))

	_, err = s.GetGame(ctx, "g1")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_MissIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	backing := mock.NewMockStore(ctrl)
	backing.EXPECT().GetGame(gomock.Any(), "nope").Return(nil, catalog.ErrNotFound).Times(2)

	s, err := New(backing, 0)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.GetGame(context.Background(), "nope")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	}
}
