package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/catalog/mock"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
)

func TestCopySnapshots(t *testing.T) {
	ctx := context.Background()
	src, dst := memory.New(), memory.New()

	require.NoError(t, src.PutGame(ctx, &catalog.Game{ID: "g1", Name: "One", Category: catalog.CategoryArcade}))
	require.NoError(t, src.PutGame(ctx, &catalog.Game{ID: "g2", Name: "Two", Category: catalog.CategoryArcade}))
	u := catalog.NewUser("u1")
	u.Rank = catalog.RankB
	require.NoError(t, src.PutUser(ctx, u))
	require.NoError(t, dst.PutGame(ctx, &catalog.Game{ID: "g1", Name: "Stale", Category: catalog.CategoryArcade}))

	stats, err := CopySnapshots(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, CopyStats{Games: 2, Users: 1}, stats)

	g, err := dst.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "One", g.Name)

	got, err := dst.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, catalog.RankB, got.Rank)
}

func TestCopySnapshots_StopsOnWriteError(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	require.NoError(t, src.PutGame(ctx, &catalog.Game{ID: "g1", Name: "One", Category: catalog.CategoryArcade}))

	ctrl := gomock.NewController(t)
	dst := mock.NewMockStore(ctrl)
	dst.EXPECT().PutGame(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	stats, err := CopySnapshots(ctx, src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put game g1")
	assert.Zero(t, stats.Games)
}
