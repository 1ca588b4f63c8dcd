package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/castlemilk/salahtime/backend/internal/config"
)

// Open builds the store selected by cfg.Store, wrapped in a Redis cache when
// cfg.RedisAddress is set. The returned func releases its connections.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	var (
		st      Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store {
	case config.StoreFirestore:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.GoogleCloudProject, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		st = NewFirestoreStore(client)
	case config.StorePostgres:
		db, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		st = NewPostgresStore(db)
	default:
		log.Info().Str("component", "store").Msg("using in-memory store; timetables are lost on restart")
		st = NewMemoryStore()
	}

	if cfg.RedisAddress != "" {
		rdb := NewRedisClient(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		closers = append(closers, func() { _ = rdb.Close() })
		st = NewCachedStore(st, rdb, cfg.CacheTTL)
	}

	return st, closeAll, nil
}
