package catalog

import "context"

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

type GameStore interface {
	GetGame(ctx context.Context, id string) (*Game, error)
	PutGame(ctx context.Context, game *Game) error
	DeleteGame(ctx context.Context, id string) error
	ListGameIDs(ctx context.Context) ([]string, error)
	ListGames(ctx context.Context) ([]*Game, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	PutUser(ctx context.Context, user *User) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Store is the snapshot store holding the last known catalog state.
type Store interface {
	GameStore
	UserStore
}

// GameBatch is one complete fetch of the catalog's games.
// Skipped carries the records that failed to parse.
type GameBatch struct {
	Games   []*Game
	Skipped []*MalformedRecordError
}

type UserBatch struct {
	Users   []*User
	Skipped []*MalformedRecordError
}

// Provider fetches fresh, complete catalog state from the remote service.
// Both calls either return a full batch or a *FetchError.
type Provider interface {
	FetchGames(ctx context.Context) (GameBatch, error)
	FetchUsers(ctx context.Context) (UserBatch, error)
}
