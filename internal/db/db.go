package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Kind identifies a storage backend.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindLibSQL   Kind = "libsql"
	KindPostgres Kind = "postgres"
	KindMongo    Kind = "mongo"
)

// KindOf picks a backend from the scheme of a connection string. Anything
// without a recognised scheme is treated as a local SQLite path.
func KindOf(dsn string) Kind {
	switch {
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return KindMongo
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return KindPostgres
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "wss://"):
		return KindLibSQL
	default:
		return KindSQLite
	}
}

// SQL is an open relational database together with the goqu dialect used to
// build queries against it.
type SQL struct {
	*sql.DB
	Dialect string
}

func (s *SQL) Goqu() *goqu.Database {
	return goqu.New(s.Dialect, s.DB)
}

// Open connects to a SQL backend, verifies the connection and applies the
// schema.
func Open(ctx context.Context, dsn string) (*SQL, error) {
	kind := KindOf(dsn)

	var driver, dialect string
	switch kind {
	case KindSQLite:
		driver, dialect, dsn = "sqlite", "sqlite3", formatDBPath(dsn)
	case KindLibSQL:
		driver, dialect = "libsql", "sqlite3"
	case KindPostgres:
		driver, dialect = "pgx", "postgres"
	default:
		return nil, fmt.Errorf("%s is not a sql backend", kind)
	}

	instance, err := sql.Open(driver, dsn)
	if err != nil {
		log.Error().Err(err).Str("driver", driver).Msg("failed to open database")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if kind == KindSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent updates
		instance.SetMaxOpenConns(1)
	}

	if err := instance.PingContext(ctx); err != nil {
		instance.Close()
		log.Error().Err(err).Str("driver", driver).Msg("failed to ping database")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Str("driver", driver).Msg("database connection successful")

	if err := migrate(ctx, instance); err != nil {
		instance.Close()
		log.Error().Err(err).Msg("failed to run migrations")
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("driver", driver).Msg("migrations completed successfully")

	return &SQL{DB: instance, Dialect: dialect}, nil
}

func formatDBPath(path string) string {
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		path = "snip.db"
	}

	// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_time_format", "sqlite")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "busy_timeout(5000)")

	return "file:" + path + "?" + params.Encode()
}

// The statements are portable across SQLite and PostgreSQL and run one at a
// time so no driver has to support multi-statement exec.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		avatar TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS short_links (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		owner_id TEXT REFERENCES users(id),
		clicks BIGINT NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_short_links_owner ON short_links(owner_id, created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
