package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/logger"
)

const (
	defaultTimeout  = 10 * time.Second
	gamesCollection = "games"
	usersCollection = "users"
)

type gameDoc struct {
	ID          string        `bson:"_id"`
	LastUpdated time.Time     `bson:"last_updated"`
	Game        *catalog.Game `bson:"game"`
}

type userDoc struct {
	ID   string        `bson:"_id"`
	User *catalog.User `bson:"user"`
}

// Store keeps snapshots as one document per game and per user.
type Store struct {
	games *mongo.Collection
	users *mongo.Collection
}

var _ catalog.Store = (*Store)(nil)

// Connect dials the server and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		games: db.Collection(gamesCollection),
		users: db.Collection(usersCollection),
	}
}

func (s *Store) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "get_game", id)

	var doc gameDoc
	err := notFound(s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&doc))
	op.Log(err, 1)
	if err != nil {
		return nil, err
	}
	return doc.Game, nil
}

func (s *Store) PutGame(ctx context.Context, game *catalog.Game) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "put_game", game.ID)

	res, err := s.games.ReplaceOne(ctx,
		bson.M{"_id": game.ID},
		gameDoc{ID: game.ID, LastUpdated: game.LastUpdated, Game: game},
		options.Replace().SetUpsert(true))
	op.Log(err, affected(res))
	return err
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "delete_game", id)

	res, err := s.games.DeleteOne(ctx, bson.M{"_id": id})
	if err == nil && res.DeletedCount == 0 {
		err = catalog.ErrNotFound
	}
	var n int64
	if res != nil {
		n = res.DeletedCount
	}
	op.Log(err, n)
	return err
}

func (s *Store) ListGameIDs(ctx context.Context) ([]string, error) {
	return distinctIDs(ctx, s.games)
}

func (s *Store) ListGames(ctx context.Context) ([]*catalog.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "list_games", "*")

	cur, err := s.games.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		op.Log(err, 0)
		return nil, err
	}
	defer cur.Close(ctx)

	var games []*catalog.Game
	for cur.Next(ctx) {
		var doc gameDoc
		if err := cur.Decode(&doc); err != nil {
			op.Log(err, int64(len(games)))
			return nil, fmt.Errorf("decode game: %w", err)
		}
		games = append(games, doc.Game)
	}
	op.Log(cur.Err(), int64(len(games)))
	return games, cur.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (*catalog.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "get_user", id)

	var doc userDoc
	err := notFound(s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc))
	op.Log(err, 1)
	if err != nil {
		return nil, err
	}
	if doc.User.OwnedGames == nil {
		doc.User.OwnedGames = make(map[string]catalog.UserGame)
	}
	return doc.User, nil
}

func (s *Store) PutUser(ctx context.Context, user *catalog.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "put_user", user.ID)

	res, err := s.users.ReplaceOne(ctx,
		bson.M{"_id": user.ID},
		userDoc{ID: user.ID, User: user},
		options.Replace().SetUpsert(true))
	op.Log(err, affected(res))
	return err
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	return distinctIDs(ctx, s.users)
}

func distinctIDs(ctx context.Context, col *mongo.Collection) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("mongo", "list_ids", col.Name())

	raw, err := col.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		op.Log(err, 0)
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	op.Log(nil, int64(len(ids)))
	return ids, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.ErrNotFound
	}
	return err
}

func affected(res *mongo.UpdateResult) int64 {
	if res == nil {
		return 0
	}
	return res.ModifiedCount + res.UpsertedCount
}
