package cebot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ce-community/cebot/cebot/database"
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/gateways/database/cache"
	"github.com/ce-community/cebot/internal/gateways/database/memory"
	"github.com/ce-community/cebot/internal/gateways/database/mongostore"
	"github.com/ce-community/cebot/internal/gateways/database/repositories"
)

// Stores is the persistence selected by configuration.
type Stores struct {
	Snapshots catalog.Store
	// Passes is set only for the postgres driver.
	Passes  *repositories.PassRepository
	closers []func()
	ping    func(ctx context.Context) error
}

// Ping checks the backing store connection. The memory driver is always healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores connects the configured snapshot store and puts the game cache in front of it.
func OpenStores(ctx context.Context, cfg Config) (*Stores, error) {
	start := time.Now()
	stores := &Stores{}

	var backing catalog.Store
	switch cfg.Store.Driver {
	case StoreMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
		stores.ping = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		backing = mongostore.New(client, cfg.Mongo.Database)

	case StorePostgres:
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, db.Close)
		if err := db.InitializeSchema(ctx); err != nil {
			stores.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		stores.ping = db.Ping
		backing = repositories.NewSnapshotRepository(db)
		stores.Passes = repositories.NewPassRepository(db.BunDB())

	case StoreMemory:
		backing = memory.New()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	cached, err := cache.New(backing, cfg.Store.CacheSize)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to create game cache: %w", err)
	}
	stores.Snapshots = cached

	slog.Info("Snapshot store ready",
		slog.String("type", "db"),
		slog.String("driver", cfg.Store.Driver),
		slog.Duration("took", time.Since(start)))
	return stores, nil
}
