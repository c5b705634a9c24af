package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/ce-community/cebot/cebot/database"
	"github.com/ce-community/cebot/cebot/database/models"
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/logger"
)

const defaultTimeout = 10 * time.Second

// snapshotRepository keeps game and user snapshots as jsonb rows.
type snapshotRepository struct {
	db  *database.DB
	bun *bun.DB
}

var _ catalog.Store = &snapshotRepository{}

func NewSnapshotRepository(db *database.DB) *snapshotRepository {
	return &snapshotRepository{db: db, bun: db.BunDB()}
}

func (r *snapshotRepository) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "get_game", id)

	row := new(models.GameSnapshot)
	err := r.bun.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	err = notFound(err)
	op.Log(err, 1)
	if err != nil {
		return nil, err
	}
	return row.Document, nil
}

func (r *snapshotRepository) PutGame(ctx context.Context, game *catalog.Game) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "put_game", game.ID)

	row := &models.GameSnapshot{
		ID:          game.ID,
		Name:        game.Name,
		Category:    game.Category,
		Document:    game,
		LastUpdated: game.LastUpdated,
		StoredAt:    time.Now(),
	}
	res, err := r.bun.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("category = EXCLUDED.category").
		Set("document = EXCLUDED.document").
		Set("last_updated = EXCLUDED.last_updated").
		Set("stored_at = EXCLUDED.stored_at").
		Exec(ctx)
	op.Log(err, rowsAffected(res))
	return err
}

func (r *snapshotRepository) DeleteGame(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "delete_game", id)

	res, err := r.bun.NewDelete().
		Model((*models.GameSnapshot)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	affected := rowsAffected(res)
	if err == nil && affected == 0 {
		err = catalog.ErrNotFound
	}
	op.Log(err, affected)
	return err
}

// ListGameIDs reads ids straight from the pool.
func (r *snapshotRepository) ListGameIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "SELECT id FROM game_snapshots ORDER BY id")
}

func (r *snapshotRepository) ListGames(ctx context.Context) ([]*catalog.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "list_games", "*")

	var rows []models.GameSnapshot
	err := r.bun.NewSelect().
		Model(&rows).
		Order("id ASC").
		Scan(ctx)
	op.Log(err, int64(len(rows)))
	if err != nil {
		return nil, err
	}
	games := make([]*catalog.Game, 0, len(rows))
	for i := range rows {
		games = append(games, rows[i].Document)
	}
	return games, nil
}

func (r *snapshotRepository) GetUser(ctx context.Context, id string) (*catalog.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "get_user", id)

	row := new(models.UserSnapshot)
	err := r.bun.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	err = notFound(err)
	op.Log(err, 1)
	if err != nil {
		return nil, err
	}
	if row.Document.OwnedGames == nil {
		row.Document.OwnedGames = make(map[string]catalog.UserGame)
	}
	return row.Document, nil
}

func (r *snapshotRepository) PutUser(ctx context.Context, user *catalog.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "put_user", user.ID)

	row := &models.UserSnapshot{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Document:    user,
		StoredAt:    time.Now(),
	}
	res, err := r.bun.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("document = EXCLUDED.document").
		Set("stored_at = EXCLUDED.stored_at").
		Exec(ctx)
	op.Log(err, rowsAffected(res))
	return err
}

func (r *snapshotRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "SELECT id FROM user_snapshots ORDER BY id")
}

func (r *snapshotRepository) listIDs(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryWithLog(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return err
}

func rowsAffected(res sql.Result) int64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
