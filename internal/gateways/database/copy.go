package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

type CopyStats struct {
	Games int
	Users int
}

// CopySnapshots writes every game and user of src into dst.
// Records already in dst are overwritten; nothing is deleted.
func CopySnapshots(ctx context.Context, src, dst catalog.Store) (CopyStats, error) {
	var stats CopyStats

	games, err := src.ListGames(ctx)
	if err != nil {
		return stats, fmt.Errorf("list games: %w", err)
	}
	for _, g := range games {
		if err := dst.PutGame(ctx, g); err != nil {
			return stats, fmt.Errorf("put game %s: %w", g.ID, err)
		}
		stats.Games++
	}

	ids, err := src.ListUserIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}
	for _, id := range ids {
		u, err := src.GetUser(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("get user %s: %w", id, err)
		}
		if err := dst.PutUser(ctx, u); err != nil {
			return stats, fmt.Errorf("put user %s: %w", id, err)
		}
		stats.Users++
	}

	slog.Info("Snapshots copied",
		slog.String("type", "db"),
		slog.Int("games", stats.Games),
		slog.Int("users", stats.Users))
	return stats, nil
}
