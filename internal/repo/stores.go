package repo

import (
	"context"
	"fmt"

	"github.com/abdusco/snip/internal/db"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores bundles the link and user stores of one backend together with the
// lifecycle of the connection behind them.
type Stores struct {
	Links LinkStore
	Users UserStore
	Kind  db.Kind

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Open connects to the backend named by dsn. mongoDatabase is only used for
// MongoDB connection strings.
func Open(ctx context.Context, dsn, mongoDatabase string) (*Stores, error) {
	kind := db.KindOf(dsn)
	log.Info().Str("backend", string(kind)).Msg("opening store")

	if kind == db.KindMongo {
		database, err := db.OpenMongo(ctx, dsn, mongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongoStores(database), nil
	}

	sqlDB, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	stores := NewSQLStores(sqlDB)
	stores.Kind = kind
	return stores, nil
}

func NewSQLStores(sqlDB *db.SQL) *Stores {
	return &Stores{
		Links: NewLinksRepo(sqlDB),
		Users: NewUsersRepo(sqlDB),
		Kind:  db.KindSQLite,
		ping:  sqlDB.PingContext,
		close: func(context.Context) error { return sqlDB.Close() },
	}
}

func NewMongoStores(database *mongo.Database) *Stores {
	client := database.Client()
	return &Stores{
		Links: NewMongoLinksRepo(database),
		Users: NewMongoUsersRepo(database),
		Kind:  db.KindMongo,
		ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close: client.Disconnect,
	}
}

func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	if err := s.close(ctx); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
